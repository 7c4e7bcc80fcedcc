package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrSessionExpired = errors.New("session expired, log in again")
	ErrNotAuthor      = errors.New("account has no author profile")
	ErrNotLoggedIn    = errors.New("not logged in")
)

const fallbackMessage = "unknown server error"

// APIError is a non-2xx response. Message is what the panel shows the user.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}

func parseError(statusCode int, body []byte) error {
	return &APIError{
		StatusCode: statusCode,
		Message:    ErrorMessage(body),
		Body:       body,
	}
}

// ErrorMessage turns a DRF error body into one line. "detail" wins; field
// errors are joined as "field: a , b | other: c" in body order.
func ErrorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallbackMessage
	}
	if trimmed[0] != '{' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil && text != "" {
			return text
		}
		if trimmed[0] == '[' {
			if parts := stringList(trimmed); len(parts) > 0 {
				return strings.Join(parts, " , ")
			}
		}
		return rawText(trimmed)
	}

	fields, err := orderedObject(trimmed)
	if err != nil {
		return rawText(trimmed)
	}

	for _, f := range fields {
		if f.key != "detail" {
			continue
		}
		var detail string
		if err := json.Unmarshal(f.value, &detail); err == nil && detail != "" {
			return detail
		}
		if len(f.value) > 0 && string(f.value) != "null" {
			return string(f.value)
		}
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if list := stringList(f.value); list != nil {
			parts = append(parts, f.key+": "+strings.Join(list, " , "))
			continue
		}
		var text string
		if err := json.Unmarshal(f.value, &text); err == nil {
			parts = append(parts, f.key+": "+text)
			continue
		}
		var nested struct {
			NonField []string `json:"non_field_errors"`
		}
		if err := json.Unmarshal(f.value, &nested); err == nil && len(nested.NonField) > 0 {
			parts = append(parts, strings.Join(nested.NonField, " , "))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " | ")
	}
	return rawText(trimmed)
}

const maxRawMessage = 200

// rawText keeps an unstructured body, such as a proxy's HTML error page,
// short enough for one line.
func rawText(body []byte) string {
	text := []rune(strings.TrimSpace(string(body)))
	if len(text) > maxRawMessage {
		text = text[:maxRawMessage]
	}
	if out := strings.TrimSpace(string(text)); out != "" {
		return out
	}
	return fallbackMessage
}

type rawField struct {
	key   string
	value json.RawMessage
}

func orderedObject(data []byte) ([]rawField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var fields []rawField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, rawField{key: key, value: value})
	}
	return fields, nil
}

func stringList(data []byte) []string {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
