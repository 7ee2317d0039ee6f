package service

import (
	"fmt"
	"time"

	"github.com/sealdrop/sealdrop/internal/crypto"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository"
)

// ShardService owns the split-key lifecycle: a file's symmetric key is
// split into shardCount fragments at upload, persisted as independent rows,
// and only ever reassembled in memory for the duration of one decrypt.
type ShardService struct {
	shardRepo  repository.ShardRepository
	shardCount int
}

func NewShardService(shardRepo repository.ShardRepository, shardCount int) *ShardService {
	return &ShardService{
		shardRepo:  shardRepo,
		shardCount: shardCount,
	}
}

// StoreKey splits key and persists the shards, indexed so reconstruction
// order never depends on insertion order.
func (s *ShardService) StoreKey(fileID string, key []byte) error {
	parts, err := crypto.SplitKey(key, s.shardCount)
	if err != nil {
		return fmt.Errorf("failed to split key: %w", err)
	}

	now := time.Now()
	shards := make([]model.KeyShard, len(parts))
	for i, payload := range parts {
		shards[i] = model.KeyShard{
			FileID:     fileID,
			ShardIndex: i,
			Payload:    payload,
			CreatedAt:  now,
		}
	}

	err = s.shardRepo.Store(shards)
	if err != nil {
		return fmt.Errorf("failed to store shards: %w", err)
	}
	return nil
}

// ReconstructKey fetches the file's shards ordered by index and XOR-folds
// them back into the key. Anything short of the full shard count fails with
// crypto.ErrKeyMissing: either the file was killed or the rows are corrupt,
// and a partial set must never produce a wrong key silently.
func (s *ShardService) ReconstructKey(fileID string) ([]byte, error) {
	shards, err := s.shardRepo.ByFile(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shards: %w", err)
	}
	if len(shards) != s.shardCount {
		return nil, fmt.Errorf("%w: have %d of %d shards for file %s",
			crypto.ErrKeyMissing, len(shards), s.shardCount, fileID)
	}

	payloads := make([][]byte, len(shards))
	for i, shard := range shards {
		payloads[i] = shard.Payload
	}

	return crypto.CombineShards(payloads)
}

// DestroyKey deletes every shard of the file and reports how many rows were
// removed. Unconditional: it does not care whether the ciphertext blob is
// still around, because key destruction alone guarantees undecryptability.
func (s *ShardService) DestroyKey(fileID string) (int64, error) {
	return s.shardRepo.DeleteByFile(fileID)
}
