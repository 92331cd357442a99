package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashDocument computes the content hash used for document dedup.
func HashDocument(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IsDocumentProcessed reports whether a document with this hash was already
// run through extraction. Used to skip redundant model calls on re-upload.
func (s *SQLiteStore) IsDocumentProcessed(ctx context.Context, hash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processed_documents WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check processed document: %w", err)
	}
	return count > 0, nil
}

// MarkDocumentProcessed records that a document was extracted.
func (s *SQLiteStore) MarkDocumentProcessed(ctx context.Context, hash, source string, entityCount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO processed_documents (hash, source, entity_count, processed_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`, hash, source, entityCount)
	if err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}
	return nil
}

// ProcessedDocumentCount returns the number of processed documents.
func (s *SQLiteStore) ProcessedDocumentCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processed_documents").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processed documents: %w", err)
	}
	return count, nil
}
