package model

import (
	"time"
)

// KeyShard is one fragment of a file's split symmetric key. All shards for a
// file, XOR-folded in shard_index order, yield the key. Deleting any single
// shard makes the ciphertext permanently undecryptable.
type KeyShard struct {
	FileID     string    `db:"file_id"`
	ShardIndex int       `db:"shard_index"`
	Payload    []byte    `db:"payload"`
	CreatedAt  time.Time `db:"created_at"`
}
