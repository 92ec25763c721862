package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// SkipNullHeader asks the server to drop null fields from the response body.
const SkipNullHeader = "X-Response-Skip-Null"

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// encodeResponse writes the response to the http.ResponseWriter.
// It handles HeaderSetter, StatusCoder, the skip-null header and
// negotiated encoding.
func encodeResponse(w http.ResponseWriter, r *http.Request, resp any, defaultStatus int, codecs *codecRegistry) {
	if hs, ok := resp.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}

	status := defaultStatus

	// Let the response override the status dynamically.
	if sc, ok := resp.(StatusCoder); ok {
		status = sc.StatusCode()
	}

	enc, ok := codecs.negotiate(r.Header.Get("Accept"))
	if !ok {
		writeErrorResponse(w, Error(http.StatusNotAcceptable, http.StatusText(http.StatusNotAcceptable)))
		return
	}

	body := resp
	if skipNulls(r) {
		stripped, err := withoutNulls(resp)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		body = stripped
	}

	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	enc.Encode(w, body)
}

func skipNulls(r *http.Request) bool {
	v := r.Header.Get(SkipNullHeader)
	if v == "" {
		return false
	}
	b, err := parseBool(v)
	return err == nil && b
}

// withoutNulls returns the JSON form of v with every null member removed.
func withoutNulls(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return dropNulls(doc), nil
}

func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = dropNulls(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = dropNulls(val)
		}
		return t
	default:
		return v
	}
}

// writeErrorResponse writes an error as an ErrorResponse JSON body.
func writeErrorResponse(w http.ResponseWriter, err error) {
	resp := NewErrorResponse(err)

	if resp.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", "1")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(resp)
}
