package kyugo

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-kyugo/fedkyugo/validation"
)

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorBody defines the structure inside the top-level `error` key.
type ErrorBody struct {
	Type    string        `json:"type"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Fields  []ErrorDetail `json:"fields,omitempty"`
	Meta    interface{}   `json:"meta,omitempty"`
}

type ErrorEnvelope struct {
	Status string    `json:"status"`
	Code   int       `json:"code"`
	Error  ErrorBody `json:"error"`
}

type SuccessEnvelope struct {
	Status  string      `json:"status"`
	Code    int         `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type ErrorExtras struct {
	Code string
	Type string
}

type Response struct {
	W http.ResponseWriter
	R *http.Request
}

// NewResponse creates a Response wrapper.
func NewResponse(w http.ResponseWriter, r *http.Request) *Response {
	return &Response{W: w, R: r}
}

// JSON writes a JSON response with the given status.
func (resp *Response) JSON(status int, message string, v interface{}, extras ...ErrorExtras) {
	if status >= 200 && status < 300 {
		SuccessResponse(resp.W, status, message, v)
		return
	}
	ErrorResponse(resp.W, status, message, nil, extras...)
}

// HTML writes body as text/html.
func (resp *Response) HTML(status int, body string) {
	resp.write(status, "text/html; charset=utf-8", body)
}

// Text writes body as text/plain.
func (resp *Response) Text(status int, body string) {
	resp.write(status, "text/plain; charset=utf-8", body)
}

func (resp *Response) write(status int, contentType, body string) {
	resp.W.Header().Set("Content-Type", contentType)
	resp.W.WriteHeader(status)
	_, _ = io.WriteString(resp.W, body)
}

// ValidationError writes a 422 envelope listing the failed fields of err.
// Errors that are not validation failures (for example malformed JSON)
// produce a 400.
func (resp *Response) ValidationError(err error) {
	fields := validation.FormatValidationErrors(err)
	if len(fields) == 1 && fields[0].Field == "" {
		ErrorResponse(resp.W, http.StatusBadRequest, "Invalid JSON body", nil, ErrorExtras{
			Code: "INVALID_REQUEST",
			Type: "INVALID_BODY",
		})
		return
	}
	ErrorResponse(resp.W, http.StatusUnprocessableEntity, "Validation failed", fields, ErrorExtras{
		Code: "VALIDATION_ERROR",
		Type: "INVALID_ATTRIBUTES",
	})
}

// WriteDBError inspects an error and writes an internal server error
// response if err != nil. Returns true when an error was written.
func (resp *Response) WriteDBError(err error) bool {
	if err == nil {
		return false
	}
	ErrorResponse(resp.W, http.StatusInternalServerError, "internal_error", nil, ErrorExtras{
		Code: "DB_ERROR",
		Type: "DATABASE_ERROR",
	})
	return true
}

func SuccessResponse(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Status: "success", Code: code, Message: message, Data: data})
}

// convertDetails turns the supported detail types into []ErrorDetail.
func convertDetails(details interface{}) []ErrorDetail {
	switch v := details.(type) {
	case []ErrorDetail:
		return v
	case []validation.FieldError:
		out := make([]ErrorDetail, 0, len(v))
		for _, fe := range v {
			out = append(out, ErrorDetail{Field: fe.Field, Code: fe.Code, Message: fe.Message})
		}
		return out
	case error:
		return []ErrorDetail{{Message: v.Error()}}
	}
	return nil
}

// ErrorResponse builds a consistent error envelope. When `details` are
// provided they are included under `error.fields`; otherwise that key is
// omitted. ErrorExtras.Code becomes `error.type` and ErrorExtras.Type
// becomes `error.code`; a second extras entry overrides the first.
func ErrorResponse(w http.ResponseWriter, code int, message string, details interface{}, extras ...ErrorExtras) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	eb := ErrorBody{Message: message}
	for _, x := range extras[:min(len(extras), 2)] {
		if x.Code != "" {
			eb.Type = x.Code
		}
		if x.Type != "" {
			eb.Code = x.Type
		}
	}
	if d := convertDetails(details); len(d) > 0 {
		eb.Fields = d
	}

	env := ErrorEnvelope{Status: "error", Code: code, Error: eb}
	_ = json.NewEncoder(w).Encode(env)
}
