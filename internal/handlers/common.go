// Package handlers provides the HTTP handlers for the knowledge graph API.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"kgraph-backend/pkg/api"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation. It writes the error response itself and reports whether the
// caller may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		api.Error(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage turns a validator error into a short client message.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		return "invalid field " + fe.Field() + ": failed '" + fe.Tag() + "' constraint"
	}
	return "Invalid request body"
}

// handleServiceError converts service errors to appropriate HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsValidation(err):
		api.Error(w, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		api.Error(w, http.StatusNotFound, err.Error())
	case appErrors.IsConflict(err):
		api.Error(w, http.StatusConflict, err.Error())
	default:
		// Log the full error while hiding details from the client.
		log.Printf("INTERNAL ERROR: %+v", err)
		api.Error(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// queryInt parses an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
