// Package httputil writes JSON responses and maps coded domain errors onto
// HTTP status codes. Handlers never pick status codes by hand.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "custodia/pkg/domain-errors"
)

// errorBody is the wire shape for failures. Internal failures omit the
// description so infrastructure details never leak to callers.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Field       string `json:"field,omitempty"`
}

// WriteJSON serializes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps the error's code onto a status and writes the error body.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}

	switch code {
	case dErrors.CodeInvalidInput:
		body.Description = errMessage(err)
		body.Field = dErrors.FieldOf(err)
		WriteJSON(w, http.StatusBadRequest, body)
	case dErrors.CodeNotFound:
		body.Description = errMessage(err)
		WriteJSON(w, http.StatusNotFound, body)
	case dErrors.CodeDuplicate, dErrors.CodeInvalidState:
		body.Description = errMessage(err)
		WriteJSON(w, http.StatusConflict, body)
	default:
		// Internal: no description.
		WriteJSON(w, http.StatusInternalServerError, body)
	}
}

func errMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return err.Error()
}
