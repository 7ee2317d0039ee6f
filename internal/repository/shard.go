package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/sealdrop/sealdrop/internal/model"
)

type ShardRepository interface {
	Store(shards []model.KeyShard) error
	ByFile(fileID string) ([]model.KeyShard, error)
	DeleteByFile(fileID string) (int64, error)
}

type shardRepository struct {
	db *sqlx.DB
}

func NewShardRepository(db *sqlx.DB) *shardRepository {
	return &shardRepository{db: db}
}

// Store inserts all shards of one file in a single transaction so a partial
// shard set can never be observed.
func (r *shardRepository) Store(shards []model.KeyShard) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}

	query := `INSERT INTO key_shards (file_id, shard_index, payload, created_at)
	          VALUES ($1, $2, $3, $4)`

	for _, shard := range shards {
		_, err = tx.Exec(query, shard.FileID, shard.ShardIndex, shard.Payload, shard.CreatedAt)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ByFile returns the file's shards ordered by their stored index. The index
// column is the source of order; insertion order is never trusted.
func (r *shardRepository) ByFile(fileID string) ([]model.KeyShard, error) {
	var shards []model.KeyShard
	query := `SELECT * FROM key_shards WHERE file_id = $1 ORDER BY shard_index ASC`

	err := r.db.Select(&shards, query, fileID)
	if err != nil {
		return nil, err
	}

	return shards, nil
}

// DeleteByFile removes every shard of the file and returns how many rows
// went away. This is the cryptographic erasure path: once any shard is gone
// the key cannot be re-derived.
func (r *shardRepository) DeleteByFile(fileID string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM key_shards WHERE file_id = $1`, fileID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
