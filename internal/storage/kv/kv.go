// Package kv defines the small persistent key-value store the camera
// cache is built on.
package kv

// Store is the interface for the local persistent blob store. The
// implementation serializes its own reads and writes; callers treat it
// as a synchronous API and add no locking of their own.
type Store interface {
	// GetData returns the bytes stored under key, with ok=false on a miss.
	GetData(key string) ([]byte, bool, error)
	// SetData stores val under key, overwriting any prior value.
	SetData(key string, val []byte) error
	// Remove deletes the value stored under key; absent keys are a no-op.
	Remove(key string) error
	// AllKeys returns every key currently stored.
	AllKeys() ([]string, error)
	// TotalSize returns the aggregate stored byte size of all values
	// whose key starts with prefix.
	TotalSize(prefix string) (int64, error)
	// Clear deletes every key starting with prefix.
	Clear(prefix string) error
	// Close flushes and closes the store.
	Close() error
}
