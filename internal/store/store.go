package store

import "context"

// KV is the durable key/value substrate everything persists through.
// Values are JSON-serialized.
//
// Get decodes the stored value into dest and reports whether it did.
// A missing key, a backend read failure, or corrupt JSON all return
// false and leave dest untouched, so callers keep whatever default they
// passed in. Reads never surface errors; the store degrades to defaults
// rather than failing a session over bad persisted state.
type KV interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}
