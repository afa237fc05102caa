package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"kara/karaoke"
)

// TranscriptStore layers the memory cache over the disk cache and handles
// transcript serialization. Disk hits are promoted into memory.
type TranscriptStore struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewTranscriptStore opens a store rooted at dir. Memory capacity is fixed
// at a fraction of the disk budget since transcripts are small.
func NewTranscriptStore(dir string, maxSizeMB int64, compressionLevel int) (*TranscriptStore, error) {
	diskCapacity := maxSizeMB * 1024 * 1024
	memCapacity := diskCapacity / 10
	if memCapacity < 1024*1024 {
		memCapacity = 1024 * 1024
	}

	disk, err := NewDiskCache(dir, diskCapacity, compressionLevel)
	if err != nil {
		return nil, err
	}
	return &TranscriptStore{
		memory: NewMemoryCache(memCapacity),
		disk:   disk,
	}, nil
}

// Key derives the cache key for an audio file and model pair. The file
// contents are hashed so re-downloads of the same track still hit.
func Key(audioPath, model string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio for hashing: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash audio: %w", err)
	}
	hasher.Write([]byte(model))
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Get returns the cached transcript for key, or false on a miss.
func (s *TranscriptStore) Get(key string) (*karaoke.Transcript, bool) {
	data, ok := s.memory.Get(key)
	if !ok {
		data, ok = s.disk.Get(key)
		if !ok {
			return nil, false
		}
		if err := s.memory.Put(key, data); err != nil {
			log.Debug("transcript promotion skipped", "key", key, "error", err)
		}
	}

	var transcript karaoke.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		log.Warn("dropping corrupted transcript cache entry", "key", key, "error", err)
		_ = s.Delete(key)
		return nil, false
	}
	return &transcript, true
}

// Put stores a transcript in both tiers.
func (s *TranscriptStore) Put(key string, transcript *karaoke.Transcript) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if err := s.disk.Put(key, data); err != nil {
		return err
	}
	if err := s.memory.Put(key, data); err != nil {
		log.Debug("transcript not kept in memory", "key", key, "error", err)
	}
	return nil
}

// Delete removes a transcript from both tiers.
func (s *TranscriptStore) Delete(key string) error {
	_ = s.memory.Delete(key)
	return s.disk.Delete(key)
}

// Contains reports whether a transcript is cached in either tier.
func (s *TranscriptStore) Contains(key string) bool {
	return s.memory.Contains(key) || s.disk.Contains(key)
}

// Clear empties both tiers.
func (s *TranscriptStore) Clear() error {
	_ = s.memory.Clear()
	return s.disk.Clear()
}

// Stats reports per-tier counters, memory first.
func (s *TranscriptStore) Stats() (Stats, Stats) {
	return s.memory.Stats(), s.disk.Stats()
}

// Close persists the disk index.
func (s *TranscriptStore) Close() error {
	return s.disk.Close()
}
