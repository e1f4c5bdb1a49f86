package response

import (
	"encoding/json"
	"net/http"

	"github.com/ansel1/merry"

	"tradedesk/internal/models"
)

// JSON writes a successful API response with the given data.
func JSON(w http.ResponseWriter, data interface{}) {
	JSONStatus(w, http.StatusOK, data)
}

// JSONStatus writes data in the envelope with an explicit status code.
func JSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.APIResponse{Data: data})
}

// Err writes a JSON error response with the given message and HTTP status code.
func Err(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Fail writes err with the HTTP code attached to it. Errors without a code
// are internal and their text is not exposed.
func Fail(w http.ResponseWriter, err error) {
	code := merry.HTTPCode(err)
	if code >= http.StatusInternalServerError {
		Err(w, "internal error", code)
		return
	}
	Err(w, err.Error(), code)
}

// DecodeBody decodes a JSON request body into the given value.
func DecodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
