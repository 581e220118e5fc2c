package domain

import "time"

// CacheEntry is a single cached response, keyed by normalized URL.
type CacheEntry struct {
	Key         string
	StatusCode  int
	Header      *Header
	Body        []byte
	StoredAt    time.Time
	SizeBytes   int64
}

// CacheStats reports point-in-time counters for the cache. Hits and misses
// are monotonically increasing for the lifetime of the process; Clear does
// not reset them (see spec Open Question on clear() semantics).
type CacheStats struct {
	Entries int64
	Bytes   int64
	Hits    uint64
	Misses  uint64
}

// HitRate returns Hits / (Hits + Misses), or 0 when no lookups have occurred.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
