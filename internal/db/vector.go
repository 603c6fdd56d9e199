package db

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// VectorChunk is one embedded chunk of a bookmark's text. Its ID is
// reproducible from (raindropID, chunkIndex) so that re-enrichment of the same
// bookmark overwrites rather than accumulates vectors.
type VectorChunk struct {
	ID         string
	RaindropID int64
	ChunkIndex int
	Values     []float32
}

// VectorMatch is a scored search hit.
type VectorMatch struct {
	RaindropID int64
	ChunkIndex int
	Score      float64
}

// ChunkVectorID builds the composite vector id "{raindropId}:{chunkIndex}".
func ChunkVectorID(raindropID int64, chunkIndex int) string {
	return fmt.Sprintf("%d:%d", raindropID, chunkIndex)
}

// UpsertVectors writes all chunks in one transaction, replacing any prior
// vector stored under the same id.
func (s *Store) UpsertVectors(ctx context.Context, chunks []VectorChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO vectors (id, raindrop_id, chunk_index, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.RaindropID, c.ChunkIndex, float32SliceToBytes(c.Values)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReconcileVectors deletes stale trailing vectors left behind when a re-run
// produced fewer chunks than a prior run. It is an explicit opt-in step, not
// part of the enrichment pipeline.
func (s *Store) ReconcileVectors(ctx context.Context, raindropID int64, chunkCount int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM vectors WHERE raindrop_id = ? AND chunk_index >= ?`,
		raindropID, chunkCount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// VectorCount returns the number of stored vectors for one bookmark.
func (s *Store) VectorCount(ctx context.Context, raindropID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vectors WHERE raindrop_id = ?`, raindropID).Scan(&count)
	return count, err
}

// SearchVectors brute-forces cosine similarity over all stored chunk vectors
// and returns the best matches, highest score first.
func (s *Store) SearchVectors(ctx context.Context, query []float32, limit int) ([]VectorMatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raindrop_id, chunk_index, embedding FROM vectors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var m VectorMatch
		var blob []byte
		if err := rows.Scan(&m.RaindropID, &m.ChunkIndex, &blob); err != nil {
			return nil, err
		}
		emb := bytesToFloat32Slice(blob)
		if len(emb) == 0 {
			continue
		}
		m.Score = cosineSimilarity(query, emb)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func float32SliceToBytes(s []float32) []byte {
	b := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func bytesToFloat32Slice(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	s := make([]float32, len(b)/4)
	for i := range s {
		s[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return s
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
