package core

import (
	"context"
	"time"
)

// Prompt is a single chat-completion exchange
type Prompt struct {
	System    string
	User      string
	MaxTokens int
	JSON      bool
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends the prompt and returns the raw model text
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// DictionaryClient fetches English-English definitions.
// A nil definition with a nil error means the word is unknown.
type DictionaryClient interface {
	Define(ctx context.Context, word string) (*DictionaryDefinition, error)
}

// CacheRepository defines the interface for caching remote results
type CacheRepository interface {
	// Get retrieves a live entry; absent or expired keys yield an error
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Put stores a value, evicting the oldest entry when full. A nil value is a negative result.
	Put(ctx context.Context, key string, value *Result) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Len returns the number of stored entries
	Len(ctx context.Context) (int, error)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// Handler executes typed requests on the side that owns outbound network access
type Handler interface {
	Handle(ctx context.Context, req Request) (*Result, error)
}

// Sender carries requests to the Handler. Send fails with ErrTimeout when the
// budget elapses and ErrChannelClosed once the counterpart is gone.
type Sender interface {
	Send(ctx context.Context, req Request, timeout time.Duration) (*Result, error)
	Alive() bool
}

// PageSource produces the ordered work units of one page
type PageSource interface {
	ExtractWorkUnits(ctx context.Context) ([]WorkUnit, error)
}
