package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements EntityStore, MemoryStore and ThreadStore on a single
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and initializes
// the schema. dbPath can be ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// DB exposes the underlying database handle for callers that need raw access.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables and indexes if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL COLLATE NOCASE,
		domain TEXT,
		description TEXT,
		icon TEXT,
		metadata TEXT,
		pending_confirmation INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_mentioned DATETIME DEFAULT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);

	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		type TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (source_id) REFERENCES entities(id),
		FOREIGN KEY (target_id) REFERENCES entities(id),
		UNIQUE (source_id, target_id, type)
	);

	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);

	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_id TEXT,
		entity_ids TEXT,
		importance REAL NOT NULL DEFAULT 0.5,
		tags TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		title TEXT,
		summary TEXT NOT NULL DEFAULT '',
		summary_up_to INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (thread_id) REFERENCES threads(id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, seq);

	CREATE TABLE IF NOT EXISTS processed_documents (
		hash TEXT PRIMARY KEY,
		source TEXT,
		entity_count INTEGER NOT NULL DEFAULT 0,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return s.migrateSchema()
}

// migrateSchema adds new columns to existing tables if they don't exist.
func (s *SQLiteStore) migrateSchema() error {
	if !s.columnExists("memories", "access_count") {
		if _, err := s.db.Exec("ALTER TABLE memories ADD COLUMN access_count INTEGER DEFAULT 0"); err != nil {
			return fmt.Errorf("failed to add access_count column: %w", err)
		}
	}

	if !s.columnExists("memories", "last_accessed_at") {
		if _, err := s.db.Exec("ALTER TABLE memories ADD COLUMN last_accessed_at DATETIME DEFAULT NULL"); err != nil {
			return fmt.Errorf("failed to add last_accessed_at column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table.
func (s *SQLiteStore) columnExists(tableName, columnName string) bool {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if name == columnName {
			return true
		}
	}
	return false
}

// CreateEntity adds a new entity to the store.
func (s *SQLiteStore) CreateEntity(ctx context.Context, entity *Entity) error {
	if strings.TrimSpace(entity.Name) == "" {
		return fmt.Errorf("entity name cannot be empty")
	}
	if !ValidEntityTypes[entity.Type] {
		return fmt.Errorf("invalid entity type: %q", entity.Type)
	}
	if entity.Domain != "" && !ValidDomains[entity.Domain] {
		return fmt.Errorf("invalid domain: %q", entity.Domain)
	}

	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	// Focus entities are interpretive themes and never enter the graph
	// without human approval.
	if entity.Type == EntityFocus {
		entity.PendingConfirmation = true
	}

	metadataJSON, err := marshalMetadata(entity.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (id, type, name, domain, description, icon, metadata, pending_confirmation, created_at, updated_at, last_mentioned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID, string(entity.Type), entity.Name, string(entity.Domain),
		entity.Description, entity.Icon, metadataJSON,
		boolToInt(entity.PendingConfirmation), entity.CreatedAt, entity.UpdatedAt,
		entity.LastMentioned,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}

	return nil
}

// GetEntity retrieves an entity by id. Returns (nil, nil) when not found.
func (s *SQLiteStore) GetEntity(ctx context.Context, id string) (*Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, name, domain, description, icon, metadata, pending_confirmation, created_at, updated_at, last_mentioned
		FROM entities WHERE id = ?`, id)

	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return entity, nil
}

// FindEntitiesByName searches entities by name using case-insensitive matching.
func (s *SQLiteStore) FindEntitiesByName(ctx context.Context, name string) ([]*Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, name, domain, description, icon, metadata, pending_confirmation, created_at, updated_at, last_mentioned
		FROM entities WHERE name = ? COLLATE NOCASE
		ORDER BY created_at, id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// ListEntities returns all entities ordered by creation time.
func (s *SQLiteStore) ListEntities(ctx context.Context) ([]*Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, name, domain, description, icon, metadata, pending_confirmation, created_at, updated_at, last_mentioned
		FROM entities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// TouchMention sets last_mentioned to now for the given entity.
func (s *SQLiteStore) TouchMention(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"UPDATE entities SET last_mentioned = ?, updated_at = ? WHERE id = ?", now, now, id)
	if err != nil {
		return fmt.Errorf("failed to touch mention: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("touch mention %q: %w", id, ErrEntityNotFound)
	}
	return nil
}

// ConfirmEntity clears the pending-confirmation flag after user approval.
func (s *SQLiteStore) ConfirmEntity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE entities SET pending_confirmation = 0, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to confirm entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("confirm entity %q: %w", id, ErrEntityNotFound)
	}
	return nil
}

// DeleteEntity removes an entity and its incident relationships.
// Memories referencing the entity are left in place with orphaned references.
func (s *SQLiteStore) DeleteEntity(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM relationships WHERE source_id = ? OR target_id = ?", id, id); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	return tx.Commit()
}

// UpsertRelationship creates or strengthens a relationship. For symmetric
// types the endpoint pair is stored in canonical order so that at most one
// row exists per unordered pair. Weight never decreases automatically.
func (s *SQLiteStore) UpsertRelationship(ctx context.Context, sourceID, targetID string, typ RelationType, weightDelta float64) (*Relationship, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("relationship endpoints must differ")
	}
	if weightDelta <= 0 {
		weightDelta = 1.0
	}

	if typ.Symmetric() && sourceID > targetID {
		sourceID, targetID = targetID, sourceID
	}

	now := time.Now().UTC()
	id := uuid.New().String()

	// The UNIQUE constraint on (source_id, target_id, type) makes the
	// insert-or-increment race-free within a single statement.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (id, source_id, target_id, type, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, target_id, type)
		DO UPDATE SET weight = weight + ?`,
		id, sourceID, targetID, string(typ), weightDelta, now, weightDelta)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert relationship: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, target_id, type, weight, created_at
		FROM relationships WHERE source_id = ? AND target_id = ? AND type = ?`,
		sourceID, targetID, string(typ))

	rel := &Relationship{}
	var relType string
	if err := row.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &relType, &rel.Weight, &rel.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read upserted relationship: %w", err)
	}
	rel.Type = RelationType(relType)
	return rel, nil
}

// RelationshipsFor returns all relationships incident to an entity.
func (s *SQLiteStore) RelationshipsFor(ctx context.Context, entityID string) ([]*Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, type, weight, created_at
		FROM relationships WHERE source_id = ? OR target_id = ?
		ORDER BY created_at, id`, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var rels []*Relationship
	for rows.Next() {
		rel := &Relationship{}
		var relType string
		if err := rows.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &relType, &rel.Weight, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rel.Type = RelationType(relType)
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// EntityCount returns the total number of entities.
func (s *SQLiteStore) EntityCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*Entity, error) {
	entity := &Entity{}
	var entityType, domain string
	var metadataJSON sql.NullString
	var pending int
	var lastMentioned sql.NullTime

	err := row.Scan(&entity.ID, &entityType, &entity.Name, &domain,
		&entity.Description, &entity.Icon, &metadataJSON, &pending,
		&entity.CreatedAt, &entity.UpdatedAt, &lastMentioned)
	if err != nil {
		return nil, err
	}

	entity.Type = EntityType(entityType)
	entity.Domain = Domain(domain)
	entity.PendingConfirmation = pending != 0
	if lastMentioned.Valid {
		t := lastMentioned.Time
		entity.LastMentioned = &t
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &entity.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return entity, nil
}

func scanEntities(rows *sql.Rows) ([]*Entity, error) {
	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func marshalMetadata(metadata map[string]interface{}) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
