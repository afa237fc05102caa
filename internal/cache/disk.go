package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DiskCache is the persistent tier. Entries are zstd-compressed files in a
// flat directory with a gob-encoded index. Transcripts compress well, so
// compression is on by default.
type DiskCache struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.RWMutex
	stats Stats

	compress bool
}

type diskEntry struct {
	Key        string
	FilePath   string
	Size       int64 // size on disk
	Timestamp  time.Time
	LastAccess time.Time
	Compressed bool
}

// NewDiskCache opens (or creates) a disk cache rooted at basePath. A
// compression level of zero disables compression.
func NewDiskCache(basePath string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		compress: compressionLevel > 0,
		stats:    Stats{Capacity: capacity},
	}

	if dc.compress {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	// The decoder exists regardless of the write-side setting: a directory
	// written with compression on must stay readable after it is turned off.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc.decoder = decoder

	if err := dc.loadIndex(); err != nil {
		// A broken index means a cold start, not a failure.
		dc.index = make(map[string]*diskEntry)
	}
	dc.recalculateSize()

	return dc, nil
}

// Get reads an entry from disk, decompressing it if stored compressed.
// Missing or unreadable files drop out of the index silently.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.dropLocked(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		decompressed, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			os.Remove(entry.FilePath)
			dc.dropLocked(key, entry)
			dc.stats.Misses++
			return nil, false
		}
		data = decompressed
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put writes an entry to disk, compressing it when that actually shrinks it.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dataToWrite := value
	var compressed bool
	if dc.compress && len(value) > 512 {
		if c := dc.encoder.EncodeAll(value, nil); len(c) < len(value) {
			dataToWrite = c
			compressed = true
		}
	}

	diskSize := int64(len(dataToWrite))
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		os.Remove(existing.FilePath)
		dc.size -= existing.Size
	}

	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	filePath := dc.entryPath(key)
	if err := writeFileAtomic(filePath, dataToWrite); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		FilePath:   filePath,
		Size:       diskSize,
		Timestamp:  now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += diskSize
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
	return nil
}

// Delete removes an entry and its file.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		return nil
	}
	os.Remove(entry.FilePath)
	dc.dropLocked(key, entry)
	return nil
}

// Clear removes all entries and persists the empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		os.Remove(entry.FilePath)
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0
	dc.stats.Size = 0
	dc.stats.ItemCount = 0
	return dc.saveIndex()
}

// Size returns the on-disk size in bytes.
func (dc *DiskCache) Size() int64 {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.size
}

// Contains reports whether a key exists without updating access time.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	_, ok := dc.index[key]
	return ok
}

// Stats returns a snapshot of the cache counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// RemoveOlderThan deletes entries cached before the cutoff and returns how
// many were removed.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, entry := range dc.index {
		if entry.Timestamp.Before(cutoff) {
			os.Remove(entry.FilePath)
			dc.dropLocked(key, entry)
			removed++
		}
	}
	return removed
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveIndex()
}

func (dc *DiskCache) dropLocked(key string, entry *diskEntry) {
	delete(dc.index, key)
	dc.size -= entry.Size
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
}

func (dc *DiskCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range dc.index {
		if oldestKey == "" || entry.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccess
		}
	}
	if oldestKey == "" {
		return
	}
	entry := dc.index[oldestKey]
	os.Remove(entry.FilePath)
	dc.dropLocked(oldestKey, entry)
	dc.stats.Evictions++
}

func (dc *DiskCache) entryPath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(dc.basePath, hex.EncodeToString(hash[:16])+".cache")
}

func (dc *DiskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, "cache.index"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	indexPath := filepath.Join(dc.basePath, "cache.index")
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}
	return os.Rename(tempPath, indexPath)
}

func (dc *DiskCache) recalculateSize() {
	dc.size = 0
	for _, entry := range dc.index {
		dc.size += entry.Size
	}
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
}

// writeFileAtomic writes data to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	closeErr := file.Close()
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}
	return os.Rename(tempPath, path)
}
