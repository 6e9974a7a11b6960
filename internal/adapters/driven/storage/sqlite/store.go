package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/triage-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// guideline corpus and the assessment audit log through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.triage/data/triage.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".triage", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "triage.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// GuidelineStore returns a GuidelineStore interface backed by this store.
func (s *Store) GuidelineStore() driven.GuidelineStore {
	return &guidelineStore{store: s}
}

// AssessmentLog returns an AssessmentLog interface backed by this store.
func (s *Store) AssessmentLog() driven.AssessmentLog {
	return &assessmentLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Guideline Store ====================

// guidelineStore implements driven.GuidelineStore.
type guidelineStore struct {
	store *Store
}

var _ driven.GuidelineStore = (*guidelineStore)(nil)

// SaveChunks stores or updates corpus chunks in a single transaction.
func (s *guidelineStore) SaveChunks(ctx context.Context, chunks []domain.GuidelineChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guideline_chunks (id, source, page, referral, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			page = excluded.page,
			referral = excluded.referral,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
		}

		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.Source, nullInt(chunk.Page),
			chunk.Referral, chunk.Text, string(metadataJSON), embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *guidelineStore) GetChunk(ctx context.Context, chunkID string) (*domain.GuidelineChunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source, page, referral, content, metadata, embedding
		FROM guideline_chunks WHERE id = ?
	`, chunkID)

	chunk, err := scanChunkRow(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
		}
		return nil, err
	}
	return chunk, nil
}

// AllChunks retrieves the whole corpus.
func (s *guidelineStore) AllChunks(ctx context.Context) ([]domain.GuidelineChunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source, page, referral, content, metadata, embedding
		FROM guideline_chunks
		ORDER BY source, page, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.GuidelineChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *guidelineStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guideline_chunks")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Close is a no-op; the owning Store manages the connection.
func (s *guidelineStore) Close() error {
	return nil
}

// ==================== Assessment Log ====================

// assessmentLog implements driven.AssessmentLog.
type assessmentLog struct {
	store *Store
}

var _ driven.AssessmentLog = (*assessmentLog)(nil)

// Save persists an assessment record.
func (l *assessmentLog) Save(ctx context.Context, record *domain.AssessmentRecord) error {
	citationsJSON, err := json.Marshal(record.Citations)
	if err != nil {
		return fmt.Errorf("marshalling citations: %w", err)
	}

	_, err = l.store.db.ExecContext(ctx, `
		INSERT INTO assessments (id, patient_id, decision, rationale, citations, imaging, model_name, steps_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.PatientID, string(record.Decision), record.Rationale,
		string(citationsJSON), record.Imaging, record.ModelName, record.StepsUsed, record.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving assessment: %w", err)
	}
	return nil
}

// List returns the most recent assessments, newest first. A non-positive
// limit returns everything.
func (l *assessmentLog) List(ctx context.Context, limit int) ([]domain.AssessmentRecord, error) {
	query := `
		SELECT id, patient_id, decision, rationale, citations, imaging, model_name, steps_used, created_at
		FROM assessments
		ORDER BY created_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	var records []domain.AssessmentRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.AssessmentRecord
		var decision string
		var citationsJSON string
		if err := rows.Scan(&rec.ID, &rec.PatientID, &decision, &rec.Rationale,
			&citationsJSON, &rec.Imaging, &rec.ModelName, &rec.StepsUsed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}

		rec.Decision = domain.Decision(decision)
		if citationsJSON != "" {
			if err := json.Unmarshal([]byte(citationsJSON), &rec.Citations); err != nil {
				return nil, fmt.Errorf("unmarshaling citations: %w", err)
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessments: %w", err)
	}

	return records, nil
}

// Close is a no-op; the owning Store manages the connection.
func (l *assessmentLog) Close() error {
	return nil
}

// ==================== Helpers ====================

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.GuidelineChunk, error) {
	var chunk domain.GuidelineChunk
	var page sql.NullInt64
	var metadataJSON string
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &chunk.Source, &page, &chunk.Referral,
		&chunk.Text, &metadataJSON, &embeddingBlob); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	return finishChunk(&chunk, page, metadataJSON, embeddingBlob)
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.GuidelineChunk, error) {
	var chunk domain.GuidelineChunk
	var page sql.NullInt64
	var metadataJSON string
	var embeddingBlob []byte

	if err := row.Scan(&chunk.ID, &chunk.Source, &page, &chunk.Referral,
		&chunk.Text, &metadataJSON, &embeddingBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	return finishChunk(&chunk, page, metadataJSON, embeddingBlob)
}

// finishChunk decodes the non-scalar chunk columns.
func finishChunk(chunk *domain.GuidelineChunk, page sql.NullInt64, metadataJSON string, embeddingBlob []byte) (*domain.GuidelineChunk, error) {
	if page.Valid {
		chunk.Page = domain.IntPtr(int(page.Int64))
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return chunk, nil
}

// nullInt converts a *int to a driver-friendly nullable value.
func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
