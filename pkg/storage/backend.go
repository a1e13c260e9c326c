package storage

// Backend is a bucketed key/value store. Every access goes through a
// transaction so a run's metadata and its report land together.
type Backend interface {
	// Update runs fn in a read-write transaction. An error from fn rolls
	// back everything fn wrote.
	Update(fn func(tx Tx) error) error
	// View runs fn in a read-only transaction.
	View(fn func(tx Tx) error) error
	Close() error
}

// Tx is a transaction on a Backend.
type Tx interface {
	// CreateBucket returns the named bucket, creating it if needed.
	CreateBucket(name []byte) (Bucket, error)
	// DeleteBucket removes a bucket. Missing buckets are not an error.
	DeleteBucket(name []byte) error
	// Bucket returns nil if the bucket does not exist.
	Bucket(name []byte) Bucket
	ForEachBucket(fn func(name []byte) error) error
}

// Bucket is a flat keyspace within a transaction. Values returned by Get
// and passed to ForEach are only valid until the transaction ends.
type Bucket interface {
	Put(key, value []byte) error
	Get(key []byte) []byte
	Delete(key []byte) error
	ForEach(fn func(k, v []byte) error) error
}
