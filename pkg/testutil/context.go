package testutil

import (
	"net/http"
	"time"

	"consentd/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped time, as the request time
// middleware would.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
