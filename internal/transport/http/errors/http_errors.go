package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// APIError is the body of every non-2xx JSON response. Title is the
// notification heading a client shows; Redirect names the route to go next.
type APIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Title    string `json:"title,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Title         string `json:"title,omitempty"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteRateLimited answers 429 and mirrors the wait in the Retry-After header.
func WriteRateLimited(w http.ResponseWriter, payload RateLimitError) {
	if payload.RetryAfterSec < 1 {
		payload.RetryAfterSec = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(payload.RetryAfterSec, 10))
	Write(w, http.StatusTooManyRequests, payload)
}
