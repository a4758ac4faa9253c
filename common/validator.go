package common

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateAndDecode parses the JSON body into payload and checks its
// validation tags. On failure it writes a 400 naming the offending fields
// and returns false; the handler should return without writing anything.
func ValidateAndDecode(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		writeValidationError(w, "Invalid request body")
		return false
	}

	if err := validate.Struct(payload); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		fields := make([]string, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			fields = append(fields, fieldErr.Field())
		}
		writeValidationError(w, "Validation failed for: "+strings.Join(fields, ", "))
		return false
	}

	return true
}

func writeValidationError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
