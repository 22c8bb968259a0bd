package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	memory := dbPath == ":memory:"
	if !memory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// each pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		metadata TEXT,
		origin TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source_type ON documents(source_type);
	CREATE INDEX IF NOT EXISTS idx_documents_origin ON documents(origin);

	CREATE TABLE IF NOT EXISTS handoffs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		query TEXT NOT NULL,
		reason TEXT NOT NULL,
		summary TEXT,
		concerns TEXT,
		confidence REAL,
		suggested_action TEXT,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_handoffs_status ON handoffs(status, created_at);

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		query TEXT,
		rating INTEGER NOT NULL,
		comment TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocument inserts a document or replaces the one with the same ID, keeping its creation time.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, source_type, title, content, metadata, origin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_type = excluded.source_type,
			title = excluded.title,
			content = excluded.content,
			metadata = excluded.metadata,
			origin = excluded.origin,
			updated_at = excluded.updated_at`,
		doc.ID, string(doc.SourceType), doc.Title, doc.Content, string(metadataJSON), doc.Origin, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

const documentColumns = `id, source_type, title, content, metadata, origin, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc          models.Document
		sourceType   string
		metadataJSON sql.NullString
	)
	if err := row.Scan(&doc.ID, &sourceType, &doc.Title, &doc.Content, &metadataJSON, &doc.Origin, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.SourceType = models.SourceType(sourceType)
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// GetDocuments returns the documents that exist among ids, keyed by ID.
func (s *SQLiteStorage) GetDocuments(ctx context.Context, ids []string) (map[string]*models.Document, error) {
	out := make(map[string]*models.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out[doc.ID] = doc
	}
	return out, rows.Err()
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns documents ordered by ID. An empty sourceType lists every type.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, sourceType models.SourceType, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE (? = '' OR source_type = ?)
		 ORDER BY id LIMIT ? OFFSET ?`,
		string(sourceType), string(sourceType), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DocumentIDsByOrigin lists the IDs of documents ingested from origin.
func (s *SQLiteStorage) DocumentIDsByOrigin(ctx context.Context, origin string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents WHERE origin = ? ORDER BY id`, origin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountDocuments returns document counts per source type.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (map[models.SourceType]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_type, COUNT(*) FROM documents GROUP BY source_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[models.SourceType]int64)
	for rows.Next() {
		var (
			st string
			n  int64
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[models.SourceType(st)] = n
	}
	return counts, rows.Err()
}

// CreateHandoff persists a new ticket, assigning an ID and open status when unset.
func (s *SQLiteStorage) CreateHandoff(ctx context.Context, ticket *models.HandoffTicket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.Status == "" {
		ticket.Status = models.HandoffOpen
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.now()
	}
	concerns, err := json.Marshal(ticket.Concerns)
	if err != nil {
		return fmt.Errorf("failed to marshal concerns: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO handoffs (id, session_id, query, reason, summary, concerns, confidence, suggested_action, status, created_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID, ticket.SessionID, ticket.Query, ticket.Reason, ticket.ConversationSummary, string(concerns),
		ticket.Confidence, ticket.SuggestedAction, string(ticket.Status), ticket.CreatedAt, ticket.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("create handoff: %w", err)
	}
	return nil
}

const handoffColumns = `id, session_id, query, reason, summary, concerns, confidence, suggested_action, status, created_at, resolved_at`

func scanHandoff(row rowScanner) (*models.HandoffTicket, error) {
	var (
		t          models.HandoffTicket
		summary    sql.NullString
		concerns   sql.NullString
		action     sql.NullString
		status     string
		resolvedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.SessionID, &t.Query, &t.Reason, &summary, &concerns, &t.Confidence, &action, &status, &t.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	t.ConversationSummary = summary.String
	t.SuggestedAction = action.String
	t.Status = models.HandoffStatus(status)
	if concerns.Valid && concerns.String != "" && concerns.String != "null" {
		if err := json.Unmarshal([]byte(concerns.String), &t.Concerns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal concerns: %w", err)
		}
	}
	if resolvedAt.Valid {
		at := resolvedAt.Time
		t.ResolvedAt = &at
	}
	return &t, nil
}

// GetHandoff returns a ticket by ID.
func (s *SQLiteStorage) GetHandoff(ctx context.Context, id string) (*models.HandoffTicket, error) {
	t, err := scanHandoff(s.db.QueryRowContext(ctx, `SELECT `+handoffColumns+` FROM handoffs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("handoff %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListHandoffs returns tickets with the given status, oldest first. An empty status lists all.
func (s *SQLiteStorage) ListHandoffs(ctx context.Context, status models.HandoffStatus, limit int) ([]*models.HandoffTicket, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+handoffColumns+` FROM handoffs
		 WHERE (? = '' OR status = ?)
		 ORDER BY created_at, id LIMIT ?`,
		string(status), string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.HandoffTicket
	for rows.Next() {
		t, err := scanHandoff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ResolveHandoff marks an open ticket resolved.
func (s *SQLiteStorage) ResolveHandoff(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE handoffs SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		string(models.HandoffResolved), at, id, string(models.HandoffOpen),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("open handoff %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddFeedback validates and stores a rating.
func (s *SQLiteStorage) AddFeedback(ctx context.Context, fb *models.Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, session_id, query, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		fb.ID, fb.SessionID, fb.Query, fb.Rating, fb.Comment, fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add feedback: %w", err)
	}
	return nil
}

// CountLowRatings counts the session's ratings at or below maxRating.
func (s *SQLiteStorage) CountLowRatings(ctx context.Context, sessionID string, maxRating int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE session_id = ? AND rating <= ?`, sessionID, maxRating,
	).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
