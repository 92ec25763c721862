package rest

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// validateConstraints checks all constraint tags on the struct fields and
// returns a 422 HTTPError listing every violation.
func validateConstraints(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var errs []SubError
	collectConstraintErrors(rv, "", &errs)

	if len(errs) > 0 {
		return &HTTPError{
			Status:    http.StatusUnprocessableEntity,
			Message:   fmt.Sprintf("%d constraint violation(s)", len(errs)),
			SubErrors: errs,
		}
	}

	return nil
}

func collectConstraintErrors(rv reflect.Value, prefix string, errs *[]SubError) {
	t := rv.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		fv := rv.Field(i)

		// Embedded structs contribute their fields at the same level.
		if f.Anonymous && fv.Kind() == reflect.Struct && !isParamField(f) {
			collectConstraintErrors(fv, prefix, errs)
			continue
		}
		if !f.IsExported() {
			continue
		}

		name := constraintFieldName(f)
		if name == "-" {
			continue
		}

		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		// If this is the Body field, recurse into it.
		if f.Name == "Body" && f.Type.Kind() == reflect.Struct {
			collectConstraintErrors(fv, "body", errs)
			continue
		}

		checkFieldConstraints(f, fv, path, errs)

		// Recurse into nested structs.
		if fv.Kind() == reflect.Struct && !isParamField(f) && fv.NumField() > 0 {
			collectConstraintErrors(fv, path, errs)
		}
	}
}

// constraintFieldName reports parameters by their wire name.
func constraintFieldName(f reflect.StructField) string {
	for _, tag := range paramTags {
		if name := f.Tag.Get(tag); name != "" {
			return name
		}
	}
	if name := f.Tag.Get("form"); name != "" {
		return name
	}
	return jsonFieldName(f)
}

func checkFieldConstraints(f reflect.StructField, fv reflect.Value, path string, errs *[]SubError) {
	violation := func(value any, format string, args ...any) {
		*errs = append(*errs, SubError{
			Field:   path,
			Message: fmt.Sprintf(format, args...),
			Value:   value,
		})
	}

	if fv.Kind() == reflect.String {
		val := fv.String()
		length := utf8.RuneCountInString(val)

		if tag := f.Tag.Get("required"); tag == "true" && val == "" && !isParamField(f) {
			violation(val, "is required")
			return
		}
		if tag := f.Tag.Get("minLength"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length < n {
				violation(val, "must be at least %d characters", n)
			}
		}
		if tag := f.Tag.Get("maxLength"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length > n {
				violation(val, "must be at most %d characters", n)
			}
		}
		if tag := f.Tag.Get("pattern"); tag != "" && val != "" {
			if matched, err := regexp.MatchString(tag, val); err == nil && !matched {
				violation(val, "must match pattern %s", tag)
			}
		}
		if tag := f.Tag.Get("enum"); tag != "" && val != "" {
			if !slices.Contains(strings.Split(tag, ","), val) {
				violation(val, "must be one of [%s]", tag)
			}
		}
	}

	if isNumericKind(fv.Kind()) {
		floatVal := toFloat64(fv)
		if tag := f.Tag.Get("minimum"); tag != "" {
			if lower, err := strconv.ParseFloat(tag, 64); err == nil && floatVal < lower {
				violation(floatVal, "must be at least %s", tag)
			}
		}
		if tag := f.Tag.Get("maximum"); tag != "" {
			if upper, err := strconv.ParseFloat(tag, 64); err == nil && floatVal > upper {
				violation(floatVal, "must be at most %s", tag)
			}
		}
	}

	if fv.Kind() == reflect.Slice {
		length := fv.Len()
		if tag := f.Tag.Get("minItems"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length < n {
				violation(length, "must have at least %d items", n)
			}
		}
		if tag := f.Tag.Get("maxItems"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length > n {
				violation(length, "must have at most %d items", n)
			}
		}
	}
}

func isNumericKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default: // float32, float64
		return v.Float()
	}
}
