package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateThread creates a new empty conversation thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, id, title string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, title, summary, summary_up_to, created_at, updated_at)
		VALUES (?, ?, '', 0, ?, ?)`, id, title, now, now)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

// AppendMessage appends a message to the thread's ordered sequence.
func (s *SQLiteStore) AppendMessage(ctx context.Context, threadID, messageID, role, content string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM threads WHERE id = ?", threadID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check thread: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("append to thread %q: %w", threadID, ErrThreadNotFound)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE thread_id = ?", threadID).Scan(&next); err != nil {
		return fmt.Errorf("failed to compute message sequence: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, seq, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		messageID, threadID, next, role, content, at.UTC()); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE threads SET updated_at = ? WHERE id = ?", time.Now().UTC(), threadID); err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}

	return tx.Commit()
}

// Messages returns the thread's messages in insertion order.
func (s *SQLiteStore) Messages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, role, content, created_at
		FROM messages WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []ThreadMessage
	for rows.Next() {
		var m ThreadMessage
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Summary returns the thread's stored summary and boundary index.
func (s *SQLiteStore) Summary(ctx context.Context, threadID string) (string, int, error) {
	var summary string
	var upTo int
	err := s.db.QueryRowContext(ctx,
		"SELECT summary, summary_up_to FROM threads WHERE id = ?", threadID).Scan(&summary, &upTo)
	if err == sql.ErrNoRows {
		return "", 0, fmt.Errorf("thread %q: %w", threadID, ErrThreadNotFound)
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to get thread summary: %w", err)
	}
	return summary, upTo, nil
}

// UpdateSummary stores a new summary covering messages [0, upTo).
// The boundary is monotonic: moving it backwards is rejected, since messages
// before the stored boundary exist only via the summary.
func (s *SQLiteStore) UpdateSummary(ctx context.Context, threadID, summary string, upTo int) error {
	_, current, err := s.Summary(ctx, threadID)
	if err != nil {
		return err
	}
	if upTo < current {
		return fmt.Errorf("summary boundary %d < %d: %w", upTo, current, ErrSummaryRegression)
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE threads SET summary = ?, summary_up_to = ?, updated_at = ? WHERE id = ?",
		summary, upTo, time.Now().UTC(), threadID)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}
