package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/brahma/api-tracker/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// Upper bound on a JSON body accepted by the tracking endpoint
const MaxPayloadBytes = 1 << 20

// JSONPayload is a request body that was declared as JSON and parsed successfully
type JSONPayload struct {
	raw json.RawMessage
}

func (p *JSONPayload) Bytes() []byte {
	if p == nil {
		return nil
	}
	return p.raw
}

// RequestContext is everything the ingest path reads off an HTTP request.
// It is filled by the HTTP layer before the service runs.
type RequestContext struct {
	Method      string
	ContentType *string
	Payload     *JSONPayload
	RemoteIP    string
	UserAgent   string
}

// IsJSONMediaType matches application/json and application/*+json, ignoring parameters
func IsJSONMediaType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/json" {
		return true
	}
	return strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json")
}

// ParsePayload returns nil when the content type is not JSON. A JSON content type
// with an empty or malformed body, invalid UTF-8, or a NUL in any string is a
// validation error.
func ParsePayload(contentType string, body []byte) (*JSONPayload, error) {
	if !IsJSONMediaType(contentType) {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, apperrors.NewValidation("request body is empty but declared as JSON", nil)
	}
	if !json.Valid(trimmed) {
		return nil, apperrors.NewValidation("request body is not valid JSON", nil)
	}
	if !utf8.Valid(trimmed) {
		return nil, apperrors.NewValidation("request body is not valid UTF-8", nil)
	}
	if hasNUL(trimmed) {
		return nil, apperrors.NewValidation("request body contains a NUL character", nil)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return nil, apperrors.NewValidation("request body is not valid JSON", err)
	}

	return &JSONPayload{raw: compact.Bytes()}, nil
}

// FromGin builds the request context for the current gin request
func FromGin(c *gin.Context) (RequestContext, error) {
	rc := RequestContext{
		Method:    c.Request.Method,
		RemoteIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	if values, ok := c.Request.Header["Content-Type"]; ok && len(values) > 0 {
		contentType := values[0]
		rc.ContentType = &contentType
	}

	if rc.ContentType == nil || !IsJSONMediaType(*rc.ContentType) {
		return rc, nil
	}

	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxPayloadBytes)
	}
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return rc, apperrors.NewValidation("request body too large", err)
		}
		return rc, apperrors.NewValidation("failed to read request body", err)
	}

	payload, err := ParsePayload(*rc.ContentType, body)
	if err != nil {
		return rc, err
	}
	rc.Payload = payload

	return rc, nil
}

// hasNUL reports whether any decoded string or object key in a valid JSON
// document carries U+0000. jsonb columns reject it.
func hasNUL(doc []byte) bool {
	if !bytes.Contains(doc, []byte(`\u0000`)) {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}
	return containsNUL(v)
}

func containsNUL(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.ContainsRune(t, 0)
	case []any:
		for _, item := range t {
			if containsNUL(item) {
				return true
			}
		}
	case map[string]any:
		for k, item := range t {
			if strings.ContainsRune(k, 0) || containsNUL(item) {
				return true
			}
		}
	}
	return false
}
