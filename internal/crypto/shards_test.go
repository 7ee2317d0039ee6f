package crypto

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCombineRoundTrip(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	for _, n := range []int{2, 3, 5, 8} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			shards, err := SplitKey(key, n)
			require.NoError(t, err)
			require.Len(t, shards, n)
			for _, shard := range shards {
				assert.Len(t, shard, len(key))
				assert.NotEqual(t, key, shard)
			}

			got, err := CombineShards(shards)
			require.NoError(t, err)
			assert.Equal(t, key, got)
		})
	}
}

func TestSplitKeyRejectsTooFewShards(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	_, err = SplitKey(key, 1)
	assert.Error(t, err)
	_, err = SplitKey(key, 0)
	assert.Error(t, err)
}

func TestCombineShardsMissingShard(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	shards, err := SplitKey(key, 3)
	require.NoError(t, err)

	// A partial set must fail, never silently yield a wrong key.
	got, err := CombineShards(shards[:1])
	assert.ErrorIs(t, err, ErrKeyMissing)
	assert.Nil(t, got)

	// Two of three combine without error but cannot equal the key; the
	// store layer guards against this by requiring the full count.
	got, err = CombineShards(shards[:2])
	require.NoError(t, err)
	assert.NotEqual(t, key, got)
}

func TestCombineShardsLengthMismatch(t *testing.T) {
	shards := [][]byte{make([]byte, 32), make([]byte, 16)}
	_, err := CombineShards(shards)
	assert.ErrorContains(t, err, "length mismatch")
}
