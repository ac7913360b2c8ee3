package models

import "time"

// CacheEntry stores a previously generated rewrite.
type CacheEntry struct {
	Key        string    `json:"key"`
	ResultText string    `json:"result_text"`
	InsertedAt time.Time `json:"inserted_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Backend string `json:"backend"`
	Entries int64  `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}
