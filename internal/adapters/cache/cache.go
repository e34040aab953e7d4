package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
)

var (
	// ErrNotFound is returned when a cache entry is absent or expired
	ErrNotFound = errors.New("cache entry not found")
)

// Options bound a cache namespace
type Options struct {
	// Namespace separates several caches sharing one database
	Namespace string
	// MaxEntries is the FIFO capacity; zero or less means unbounded
	MaxEntries int
	// TTL expires entries at read time; zero keeps them until evicted
	TTL time.Duration
	// CleanupFreq enables a background sweep of expired entries when positive
	CleanupFreq time.Duration
}

func (o Options) expiresAt(now time.Time) time.Time {
	if o.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(o.TTL)
}

// encodeValue serializes a result; a negative entry encodes as JSON null
func encodeValue(v *core.Result) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return data, nil
}

func decodeValue(data []byte) (*core.Result, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v *core.Result
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode cache value: %w", err)
	}
	return v, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
