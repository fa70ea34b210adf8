package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/facewatch/internal/database"
)

// ReferenceRepository stores reference sets. The newest set is the current one.
type ReferenceRepository struct {
	pool *Pool
}

var _ database.ReferenceStore = (*ReferenceRepository)(nil)

// NewReferenceRepository creates a repository over pool.
func NewReferenceRepository(pool *Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// SaveReferences inserts set and its embeddings in one transaction.
func (r *ReferenceRepository) SaveReferences(ctx context.Context, set *database.ReferenceSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	trainedAt := set.Timestamp
	if trainedAt.IsZero() {
		trainedAt = time.Now()
	}

	photos := set.ValidPhotos
	if photos == nil {
		photos = []string{}
	}

	var setID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO reference_sets (name, model, detector, embedding_size, num_photos, valid_photos, trained_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, set.Name, set.Model, set.Detector, set.Dim(), set.NumPhotos, pq.Array(photos), trainedAt).Scan(&setID)
	if err != nil {
		return fmt.Errorf("insert reference set: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reference_embeddings (set_id, position, embedding) VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("prepare embedding insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range set.Embeddings {
		if _, err := stmt.ExecContext(ctx, setID, i, pgvector.NewVector(e)); err != nil {
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reference set: %w", err)
	}
	return nil
}

// LoadReferences returns the newest set with its embeddings.
func (r *ReferenceRepository) LoadReferences(ctx context.Context) (*database.ReferenceSet, error) {
	var (
		setID int64
		set   database.ReferenceSet
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, model, detector, embedding_size, num_photos, valid_photos, trained_at
		FROM reference_sets
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`).Scan(&setID, &set.Name, &set.Model, &set.Detector, &set.EmbeddingSize, &set.NumPhotos,
		pq.Array(&set.ValidPhotos), &set.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNoReferences
	}
	if err != nil {
		return nil, fmt.Errorf("query reference set: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT embedding FROM reference_embeddings WHERE set_id = $1 ORDER BY position
	`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		set.Embeddings = append(set.Embeddings, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	if len(set.Embeddings) == 0 {
		return nil, database.ErrNoReferences
	}
	return &set, nil
}

// CountSets returns the number of stored sets.
func (r *ReferenceRepository) CountSets(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reference_sets").Scan(&n); err != nil {
		return 0, fmt.Errorf("count reference sets: %w", err)
	}
	return n, nil
}

// NearestSimilarity returns the highest cosine similarity between query and
// the embeddings of the newest set, computed by pgvector.
func (r *ReferenceRepository) NearestSimilarity(ctx context.Context, query []float32) (float64, error) {
	var distance float64
	err := r.pool.QueryRow(ctx, `
		SELECT e.embedding <=> $1
		FROM reference_embeddings e
		WHERE e.set_id = (SELECT id FROM reference_sets ORDER BY created_at DESC, id DESC LIMIT 1)
		ORDER BY e.embedding <=> $1
		LIMIT 1
	`, pgvector.NewVector(query)).Scan(&distance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, database.ErrNoReferences
	}
	if err != nil {
		return 0, fmt.Errorf("query nearest embedding: %w", err)
	}
	return 1 - distance, nil
}
