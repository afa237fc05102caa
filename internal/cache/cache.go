// Package cache stores transcription results so repeated plays of the same
// audio skip the speech-to-text step. A small in-memory LRU sits in front
// of a compressed on-disk store.
package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted is returned when cached data cannot be decoded.
	ErrCorrupted = errors.New("cache data corrupted")
)

// Stats holds cache counters.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
}

// Cache is the contract shared by the memory and disk tiers.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error

	Size() int64
	Contains(key string) bool
	Stats() Stats
}
