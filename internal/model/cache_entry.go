package model

// CacheEntry is a persisted event result set for one cache key.
type CacheEntry struct {
	Key       string        `json:"key"`
	UpdatedAt int64         `json:"updated_at,string"`
	Records   []EventRecord `json:"records"`
}
