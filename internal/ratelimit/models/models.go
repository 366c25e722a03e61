package models

import "time"

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the number of whole seconds until the window frees a slot,
// never less than one.
func (r *Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// Limit is a request budget per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// ExceededResponse is the body of a 429 reply.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
