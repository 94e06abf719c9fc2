package clipherd

import (
	"sync"
	"time"
)

// DefaultMaxHammingDistance is the exclusive bound below which two
// fingerprints count as the same content. The value is empirically tuned,
// not derived; override it per account in AccountSettings.
const DefaultMaxHammingDistance = 2

// DuplicateIndex is the process-wide set of fingerprints of all previously
// published content, shared by reference across every account supervisor.
// It is safe for concurrent query and insert.
//
// Queries scan every stored entry; with FrameSamples hashes per side that is
// O(entries * 16) distance computations per query. Posting cadence is
// minutes apart per account, so the flat scan holds up far past the
// retention windows this system runs with.
type DuplicateIndex struct {
	mu      sync.RWMutex
	entries map[string]*PublishedFingerprint // keyed by source ref
	maxDist int
}

// NewDuplicateIndex creates an empty index with the given exclusive
// duplicate-distance bound. A non-positive bound falls back to the default.
func NewDuplicateIndex(maxDistance int) *DuplicateIndex {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxHammingDistance
	}
	return &DuplicateIndex{
		entries: make(map[string]*PublishedFingerprint),
		maxDist: maxDistance,
	}
}

// Insert records a published fingerprint set. Inserting the same source ref
// twice is a no-op, keeping the original publication time.
func (x *DuplicateIndex) Insert(fp PublishedFingerprint) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.entries[fp.SourceRef]; exists {
		return
	}
	entry := fp
	x.entries[fp.SourceRef] = &entry
}

// IsDuplicate reports whether any stored fingerprint lies within the
// duplicate-distance bound of any fingerprint in the query set.
func (x *DuplicateIndex) IsDuplicate(set FingerprintSet) bool {
	return x.MinDistance(set) < x.maxDist
}

// MinDistance returns the minimum Hamming distance between the query set
// and every stored entry, or 65 when the index is empty (one past the
// largest possible distance, so empty never matches any threshold).
func (x *DuplicateIndex) MinDistance(set FingerprintSet) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	min := 65
	for _, entry := range x.entries {
		if d := entry.Fingerprints.MinDistance(set); d < min {
			min = d
		}
	}
	return min
}

// Contains reports whether a source ref has already been published.
func (x *DuplicateIndex) Contains(sourceRef string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	_, ok := x.entries[sourceRef]
	return ok
}

// EvictBefore removes entries published before the cutoff and returns how
// many were removed. Perceptual similarity to very old content stops
// mattering, so long retention windows can be trimmed without breaking the
// duplicate guarantee for recent publications.
func (x *DuplicateIndex) EvictBefore(cutoff time.Time) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	removed := 0
	for ref, entry := range x.entries {
		if entry.PublishedAt.Before(cutoff) {
			delete(x.entries, ref)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries.
func (x *DuplicateIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.entries)
}
