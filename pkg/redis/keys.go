package redis

import (
	"strconv"
	"strings"
	"time"
)

// Keyspace namespaces every key the API writes so several environments can
// share one Redis instance.
type Keyspace string

// DefaultKeyspace is used when the client is built without an explicit prefix.
const DefaultKeyspace Keyspace = "pdv"

const (
	segmentSession     = "session"
	segmentRateLimit   = "rate_limit"
	segmentIdempotency = "idempotency"
)

func (k Keyspace) join(segments ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// Session is the key holding the owner of an access token id.
func (k Keyspace) Session(accessID string) string {
	return k.join(segmentSession, accessID)
}

// Idempotency is the key caching a replayable response for scope and id.
func (k Keyspace) Idempotency(scope, id string) string {
	return k.join(segmentIdempotency, scope, id)
}

// RateLimit is the counter key for scope inside the window that contains at.
// Each window gets its own key, so counters never carry over.
func (k Keyspace) RateLimit(scope string, at time.Time, window time.Duration) string {
	if window <= 0 {
		return k.join(segmentRateLimit, scope)
	}
	bucket := at.UnixNano() / int64(window)
	return k.join(segmentRateLimit, scope, strconv.FormatInt(bucket, 36))
}
