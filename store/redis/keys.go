package redis

// Key prefixes for primary record storage.
const (
	prefixMessage = "esig:msg:"
	prefixPoison  = "esig:psn:"
	prefixBlob    = "esig:blob:"
)

// Sorted set indexes.
const (
	zQueue     = "esig:z:queue"   // score = VisibleAt
	zPoisonAll = "esig:z:psn:all" // score = FailedAt
)

// entityKey returns the primary key for a record.
func entityKey(prefix, id string) string {
	return prefix + id
}
