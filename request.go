package rest

import (
	"encoding"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// maxMultipartMemory is the maximum memory used for multipart form parsing (32 MB).
const maxMultipartMemory = 32 << 20

// requestCategory describes how a request type should be decoded.
type requestCategory int

const (
	catVoid     requestCategory = iota // no params, no body
	catBodyOnly                        // entire struct is the body (no param tags, no Body field)
	catParams                          // has param tags but no Body field
	catMixed                           // has Body field (params from tagged fields, body from Body)
	catForm                            // has form tags (multipart/form-data binding)
)

// classifyRequest determines how a request type should be decoded.
func classifyRequest(t reflect.Type) requestCategory {
	if t == reflect.TypeFor[Void]() {
		return catVoid
	}
	if hasFormTags(t) {
		return catForm
	}
	if hasBodyField(t) {
		return catMixed
	}
	if hasParamTags(t) {
		return catParams
	}
	return catBodyOnly
}

// decodeRequest creates a new Req value and populates it from the HTTP request.
func decodeRequest[Req any](r *http.Request, codecs *codecRegistry) (*Req, error) {
	req := new(Req)
	t := reflect.TypeFor[Req]()
	cat := classifyRequest(t)

	if cat == catVoid {
		return req, nil
	}

	if t.Kind() == reflect.Struct {
		if err := bindParams(reflect.ValueOf(req).Elem(), r); err != nil {
			return nil, err
		}
	}

	switch cat {
	case catBodyOnly:
		if err := decodeBody(r, req, codecs); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
	case catMixed:
		bodyPtr := reflect.ValueOf(req).Elem().FieldByName("Body").Addr().Interface()
		if err := decodeBody(r, bodyPtr, codecs); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
	case catForm:
		if err := bindFormFields(reflect.ValueOf(req).Elem(), r); err != nil {
			return nil, err
		}
	}

	if p, ok := any(req).(Pager); ok {
		collectPageExtras(p.Paging(), reflect.ValueOf(req).Elem(), r)
	}

	return req, nil
}

// bindParams binds path, query and header values to struct fields,
// descending into embedded structs.
func bindParams(v reflect.Value, r *http.Request) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		field := v.Field(i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && !isParamField(f) {
			if err := bindParams(field, r); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() || f.Name == "Body" {
			continue
		}

		if name := f.Tag.Get("path"); name != "" {
			if val := r.PathValue(name); val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
				}
			}
		}

		if name := f.Tag.Get("query"); name != "" {
			if err := bindQuery(f, field, name, r); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
			}
		}

		if name := f.Tag.Get("header"); name != "" {
			val := r.Header.Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
				}
			}
		}
	}

	return nil
}

func bindQuery(f reflect.StructField, field reflect.Value, name string, r *http.Request) error {
	values := r.URL.Query()[name]

	if field.Kind() == reflect.Slice && !isTextUnmarshaler(field) {
		if len(values) == 0 {
			return nil
		}
		slice := reflect.MakeSlice(field.Type(), len(values), len(values))
		for i, val := range values {
			if err := setFieldValue(slice.Index(i), val); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	}

	var val string
	if len(values) > 0 {
		val = values[0]
	}
	if val == "" {
		val = f.Tag.Get("default")
	}
	if val == "" {
		return nil
	}
	return setFieldValue(field, val)
}

// collectPageExtras copies the raw filter arguments of a paged request into
// the page so pagination links can carry them.
func collectPageExtras(page *Page, v reflect.Value, r *http.Request) {
	query := r.URL.Query()
	for _, name := range queryParamNames(v.Type()) {
		if name == "offset" || name == "limit" {
			continue
		}
		if val := query.Get(name); val != "" {
			*page = page.With(name, val)
		}
	}
}

// queryParamNames lists the query tags of a struct, including embedded structs.
func queryParamNames(t reflect.Type) []string {
	var names []string
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !isParamField(f) {
			names = append(names, queryParamNames(f.Type)...)
			continue
		}
		if name := f.Tag.Get("query"); name != "" && f.IsExported() {
			names = append(names, name)
		}
	}
	return names
}

// bindFormFields binds multipart form fields and files to struct fields tagged with "form".
func bindFormFields(v reflect.Value, r *http.Request) error {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return fmt.Errorf("%w: %w", ErrBindForm, err)
	}

	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Tag.Get("form")
		if name == "" {
			continue
		}

		field := v.Field(i)

		// FileUpload fields: use r.FormFile.
		if f.Type == reflect.TypeFor[FileUpload]() {
			file, header, err := r.FormFile(name)
			if errors.Is(err, http.ErrMissingFile) {
				continue // optional file stays zero
			}
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBindForm, name, err)
			}
			field.Set(reflect.ValueOf(FileUpload{
				Filename: header.Filename,
				Size:     header.Size,
				Header:   header,
				file:     file,
			}))
			continue
		}

		// []FileUpload fields: iterate all files for this field name.
		if f.Type == reflect.TypeFor[[]FileUpload]() {
			if r.MultipartForm == nil || len(r.MultipartForm.File[name]) == 0 {
				continue
			}
			headers := r.MultipartForm.File[name]
			uploads := make([]FileUpload, 0, len(headers))
			for _, header := range headers {
				uploads = append(uploads, FileUpload{
					Filename: header.Filename,
					Size:     header.Size,
					Header:   header,
				})
			}
			field.Set(reflect.ValueOf(uploads))
			continue
		}

		if val := r.FormValue(name); val != "" {
			if err := setFieldValue(field, val); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBindForm, name, err)
			}
		}
	}

	return nil
}

func isTextUnmarshaler(field reflect.Value) bool {
	return field.CanAddr() && field.Addr().Type().Implements(reflect.TypeFor[encoding.TextUnmarshaler]())
}

// setFieldValue sets a reflect.Value from a string, supporting common types
// and anything implementing encoding.TextUnmarshaler (e.g. uuid.UUID).
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	if isTextUnmarshaler(field) {
		tu, _ := field.Addr().Interface().(encoding.TextUnmarshaler)
		return tu.UnmarshalText([]byte(value))
	}

	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// parseBool accepts the spellings of strconv.ParseBool plus "yes" and "no".
func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(value)
}

// decodeBody decodes the request body into target using the decoder that
// matches the Content-Type.
func decodeBody(r *http.Request, target any, codecs *codecRegistry) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec, ok := codecs.decoderFor(r.Header.Get("Content-Type"))
	if !ok {
		return fmt.Errorf("unsupported content type %q", r.Header.Get("Content-Type"))
	}
	return dec.Decode(r.Body, target)
}
