// Package response writes the JSON envelope shared by all handlers.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator"
)

type errorBody struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Err writes a {success:false, message} body.
func Err(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Success: false, Message: msg})
}

// ValidationErr writes a 400 with per-field detail.
func ValidationErr(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			fields[e.Field()] = "is required"
		case "email":
			fields[e.Field()] = "must be a valid email address"
		case "min":
			fields[e.Field()] = fmt.Sprintf("must be at least %s characters", e.Param())
		case "gt":
			fields[e.Field()] = fmt.Sprintf("must be greater than %s", e.Param())
		default:
			fields[e.Field()] = fmt.Sprintf("failed %s validation", e.Tag())
		}
	}
	JSON(w, http.StatusBadRequest, errorBody{
		Success: false,
		Message: "validation failed",
		Errors:  fields,
	})
}
