package contexthelpers

import (
	"context"
	"net/http"
)

type contextKey string

const requestIDContextKey = contextKey("requestID")

// SetRequestID stores the id of the request for handlers and error responses.
func SetRequestID(r *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
	return r.WithContext(ctx)
}

func RequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDContextKey).(string)
	if !ok {
		return ""
	}

	return requestID
}
