package api

import (
	"context"
	"time"
)

// QueryTimeout is the default timeout for store and blob calls
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context bounded by timeout, or QueryTimeout when timeout is zero
func WithQueryTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		timeout = QueryTimeout
	}
	return context.WithTimeout(parent, timeout)
}
