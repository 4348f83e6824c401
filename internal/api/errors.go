package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Error is a non-2xx response from the backend. Detail carries the
// "detail" field of the body when present; Fields carries per-field
// validation messages.
type Error struct {
	Status    int
	Detail    string
	Fields    map[string][]string
	RequestID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message(), e.Status)
}

// Message is the human readable form shown in toasts and error panels.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		first := names[0]
		msg := strings.Join(e.Fields[first], " ")
		if first == "non_field_errors" {
			return msg
		}
		return first + ": " + msg
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return "request failed"
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsValidation reports whether err carries field errors.
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && len(apiErr.Fields) > 0
}

// Message extracts a display string from any error, falling back to
// fallback when err carries nothing useful.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

func decodeError(resp *http.Response, requestID string) *Error {
	out := &Error{Status: resp.StatusCode, RequestID: requestID}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return out
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		out.Detail = strings.TrimSpace(string(data))
		if len(out.Detail) > 200 || strings.HasPrefix(out.Detail, "<") {
			out.Detail = ""
		}
		return out
	}
	if raw, ok := body["detail"]; ok {
		var detail string
		if json.Unmarshal(raw, &detail) == nil {
			out.Detail = detail
		}
		delete(body, "detail")
	}
	for name, raw := range body {
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			if out.Fields == nil {
				out.Fields = map[string][]string{}
			}
			out.Fields[name] = list
			continue
		}
		var single string
		if json.Unmarshal(raw, &single) == nil {
			if out.Fields == nil {
				out.Fields = map[string][]string{}
			}
			out.Fields[name] = []string{single}
		}
	}
	return out
}
