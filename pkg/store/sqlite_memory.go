package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddMemory creates a new memory record.
func (s *SQLiteStore) AddMemory(ctx context.Context, memory *Memory) error {
	if strings.TrimSpace(memory.Content) == "" {
		return fmt.Errorf("memory content cannot be empty")
	}
	if memory.Importance < 0 || memory.Importance > 1 {
		return fmt.Errorf("memory importance must be in [0,1], got %f", memory.Importance)
	}

	if memory.ID == "" {
		memory.ID = uuid.New().String()
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now().UTC()
	}

	entityIDs, err := marshalStrings(memory.EntityIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal entity ids: %w", err)
	}
	tags, err := marshalStrings(memory.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, source_type, source_id, entity_ids, importance, tags, created_at, expires_at, access_count, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)`,
		memory.ID, memory.Content, string(memory.SourceType), memory.SourceID,
		entityIDs, memory.Importance, tags, memory.CreatedAt, memory.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// GetMemory retrieves a memory by id. Returns (nil, nil) when not found.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, source_type, source_id, entity_ids, importance, tags, created_at, expires_at, access_count, last_accessed_at
		FROM memories WHERE id = ?`, id)

	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return memory, nil
}

// ListMemories returns memories ordered newest first, up to limit (0 = all).
func (s *SQLiteStore) ListMemories(ctx context.Context, limit int) ([]*Memory, error) {
	query := `
		SELECT id, content, source_type, source_id, entity_ids, importance, tags, created_at, expires_at, access_count, last_accessed_at
		FROM memories ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// MemoriesForEntity returns memories whose entity_ids reference the entity.
// entity_ids is stored as a JSON array, so this filters in Go after a scan
// rather than relying on a JSON extension being available.
func (s *SQLiteStore) MemoriesForEntity(ctx context.Context, entityID string) ([]*Memory, error) {
	all, err := s.ListMemories(ctx, 0)
	if err != nil {
		return nil, err
	}

	var matched []*Memory
	for _, m := range all {
		for _, id := range m.EntityIDs {
			if id == entityID {
				matched = append(matched, m)
				break
			}
		}
	}
	return matched, nil
}

// TouchMemoryAccess increments access tracking for a memory.
func (s *SQLiteStore) TouchMemoryAccess(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET access_count = access_count + 1, last_accessed_at = ?
		WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update memory access: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("touch memory %q: %w", id, ErrMemoryNotFound)
	}
	return nil
}

// DeleteMemory removes a memory.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

// MemoryCount returns the total number of memories.
func (s *SQLiteStore) MemoryCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return count, nil
}

func scanMemory(row rowScanner) (*Memory, error) {
	memory := &Memory{}
	var sourceType string
	var sourceID, entityIDs, tags sql.NullString
	var expiresAt, lastAccessed sql.NullTime

	err := row.Scan(&memory.ID, &memory.Content, &sourceType, &sourceID,
		&entityIDs, &memory.Importance, &tags, &memory.CreatedAt,
		&expiresAt, &memory.AccessCount, &lastAccessed)
	if err != nil {
		return nil, err
	}

	memory.SourceType = MemorySource(sourceType)
	memory.SourceID = sourceID.String
	if expiresAt.Valid {
		t := expiresAt.Time
		memory.ExpiresAt = &t
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		memory.LastAccessedAt = &t
	}
	if err := unmarshalStrings(entityIDs, &memory.EntityIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity ids: %w", err)
	}
	if err := unmarshalStrings(tags, &memory.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return memory, nil
}

func scanMemories(rows *sql.Rows) ([]*Memory, error) {
	var memories []*Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, memory)
	}
	return memories, rows.Err()
}

func marshalStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalStrings(value sql.NullString, dest *[]string) error {
	if !value.Valid || value.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(value.String), dest)
}
