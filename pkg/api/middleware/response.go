package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"startup_valuation/pkg/core/apperr"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 64 << 10

var validate = validator.New()

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string           `json:"error"`
	Hint  string           `json:"hint,omitempty"`
	Code  apperr.ErrorCode `json:"code"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and writes only its user-safe message.
func WriteError(w http.ResponseWriter, err error) {
	body := ErrorBody{Error: "Internal error", Code: apperr.CodeInternal}
	var se *apperr.StandardError
	if errors.As(err, &se) {
		body = ErrorBody{Error: se.Message, Hint: se.Hint, Code: se.Code}
	}
	WriteJSON(w, apperr.HTTPStatus(err), body)
}

// DecodeJSON reads a bounded JSON body into dst and runs struct validation.
// Both failures are apperr.ErrInvalidRequest; invalidMsg is the message shown
// when validation fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, invalidMsg string) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.InvalidRequest("Invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.InvalidRequest(invalidMsg, err)
	}
	return nil
}

// RequireMethod writes 405 and returns false when r is not the given method.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteJSON(w, http.StatusMethodNotAllowed, ErrorBody{
		Error: fmt.Sprintf("method %s not allowed", r.Method),
		Code:  apperr.CodeInvalidRequest,
	})
	return false
}
