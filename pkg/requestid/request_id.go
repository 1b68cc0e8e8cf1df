// Package requestid generates and carries request IDs of the form
// timestamp-randomhex, e.g. 1737039600123-a2b3c4d5.
package requestid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// Header is read from incoming requests and echoed on responses
const Header = "X-Request-ID"

// counter replaces the random part if the system source fails
var counter atomic.Uint64

type contextKey struct{}

// New returns a fresh request ID
func New() string {
	ts := time.Now().UnixMilli()

	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d-%d", ts, counter.Add(1))
	}
	return fmt.Sprintf("%d-%s", ts, hex.EncodeToString(b[:]))
}

// WithContext stores id on ctx
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the ID stored by WithContext, or ""
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
