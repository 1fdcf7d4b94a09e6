package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent at this point; nothing left to do but log.
		log.Printf("api: encode response: %v", err)
	}
}

// errorBody matches spec §7's wire shape exactly: { "detail": "...", "code": "..." }.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// writeError maps a store.Error's Kind to the HTTP status spec §4.4
// assigns it; anything else is treated as internal.
func writeError(w http.ResponseWriter, err error) {
	if se, ok := store.AsError(err); ok {
		writeJSON(w, statusForKind(se.Kind), errorBody{Detail: se.Message, Code: se.Code})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "unexpected server error", Code: "internal"})
}

func statusForKind(k store.Kind) int {
	switch k {
	case store.KindNotFound:
		return http.StatusNotFound
	case store.KindConflict:
		return http.StatusConflict
	case store.KindInvalid:
		return http.StatusBadRequest
	case store.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
