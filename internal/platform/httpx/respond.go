// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"
)

// problemTypePrefix namespaces ledger problem types. Clients branch on Type
// rather than on Title, which is free text.
const problemTypePrefix = "urn:odyssey-ledger:problem:"

// Problem kinds returned by the ledger API.
const (
	KindValidation = "validation"
	KindUnbalanced = "unbalanced-journal"
	KindMapping    = "account-mapping-missing"
	KindNotFound   = "not-found"
	KindConflict   = "conflict"
	KindInternal   = "internal"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ProblemType returns the type URI for a problem kind.
func ProblemType(kind string) string {
	return problemTypePrefix + kind
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response of the given kind.
func Problem(w http.ResponseWriter, status int, kind, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Type:   ProblemType(kind),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
