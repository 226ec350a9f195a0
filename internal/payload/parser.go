// Package payload turns raw request bodies into the canonical submission shape.
package payload

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

// maxMultipartMemory bounds in-memory buffering of multipart bodies.
const maxMultipartMemory = 1 << 20

// ParseBody extracts a key/value structure from the request body. JSON bodies
// decode into their top-level object; form-encoded and multipart bodies decode
// every field as key to string, with file parts reduced to their filename.
// Malformed input of any kind degrades to an empty map, never an error:
// downstream validation rejects empty submissions deterministically.
func ParseBody(r *http.Request) map[string]any {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return map[string]any{}
	}

	switch {
	case mediaType == "application/json":
		return parseJSONBody(r)
	case mediaType == "application/x-www-form-urlencoded":
		return parseFormBody(r)
	case strings.HasPrefix(mediaType, "multipart/"):
		return parseMultipartBody(r)
	default:
		return map[string]any{}
	}
}

func parseJSONBody(r *http.Request) map[string]any {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		return map[string]any{}
	}
	return fields
}

func parseFormBody(r *http.Request) map[string]any {
	if err := r.ParseForm(); err != nil {
		return map[string]any{}
	}
	fields := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields
}

func parseMultipartBody(r *http.Request) map[string]any {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return map[string]any{}
	}
	fields := make(map[string]any)
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	for key, files := range r.MultipartForm.File {
		if _, taken := fields[key]; taken || len(files) == 0 {
			continue
		}
		fields[key] = files[0].Filename
	}
	return fields
}
