// Package correlation generates and propagates per-request correlation
// ids. Every log record, outbound call and usage record carries the id.
package correlation

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HeaderName is the ingress/egress HTTP header for correlation ids
const HeaderName = "X-Correlation-ID"

// DefaultPrefix is used when no service prefix is configured
const DefaultPrefix = "PF"

type contextKey string

const idKey contextKey = "correlation_id"

// Generated ids look like PF_20250101093045_1a2b3c4d. Client-supplied ids
// are accepted when they are short, printable and header-safe.
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{3,127}$`)

// NewID generates a fresh correlation id with the given prefix
func NewID(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", prefix, time.Now().UTC().Format("20060102150405"), suffix)
}

// IsValid reports whether a client-supplied id is acceptable
func IsValid(id string) bool {
	return validID.MatchString(id)
}

// FromRequest reads the correlation id from the request header, generating
// one when absent or invalid
func FromRequest(r *http.Request, prefix string) string {
	if id := r.Header.Get(HeaderName); id != "" && IsValid(id) {
		return id
	}
	return NewID(prefix)
}

// WithID attaches the correlation id to the context
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// FromContext extracts the correlation id, empty when unset
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(idKey).(string); ok {
		return id
	}
	return ""
}
