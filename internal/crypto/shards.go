package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrKeyMissing means fewer shards than expected were available. The key is
// gone for good: either the file was killed or the shard rows are corrupt.
var ErrKeyMissing = errors.New("key shard missing")

// SplitKey splits key into n shards such that XOR-folding all of them in
// order yields the key back. The first n-1 shards are random; the last is
// the key XORed with all of them. No subset smaller than n reveals anything
// about the key.
func SplitKey(key []byte, n int) ([][]byte, error) {
	if n < 2 {
		return nil, fmt.Errorf("shard count %d too small, need at least 2", n)
	}

	shards := make([][]byte, n)
	last := make([]byte, len(key))
	copy(last, key)

	for i := 0; i < n-1; i++ {
		shard := make([]byte, len(key))
		if _, err := rand.Read(shard); err != nil {
			return nil, fmt.Errorf("failed to generate shard: %w", err)
		}
		for j := range last {
			last[j] ^= shard[j]
		}
		shards[i] = shard
	}
	shards[n-1] = last

	return shards, nil
}

// CombineShards XOR-folds shards in the given order into the original key.
// The order must match the split; callers fetch shards sorted by their
// stored index, never by insertion order. A length mismatch between shards
// is an error, never a silent truncation.
func CombineShards(shards [][]byte) ([]byte, error) {
	if len(shards) < 2 {
		return nil, ErrKeyMissing
	}

	key := make([]byte, len(shards[0]))
	copy(key, shards[0])

	for _, shard := range shards[1:] {
		if len(shard) != len(key) {
			return nil, fmt.Errorf("shard length mismatch: %d != %d", len(shard), len(key))
		}
		for j := range key {
			key[j] ^= shard[j]
		}
	}
	return key, nil
}

// Zero wipes key material after use. The reconstructed key only ever lives
// in memory for the duration of one request.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
