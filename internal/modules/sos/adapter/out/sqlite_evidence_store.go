package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
	apperrors "ridesafe/internal/platform/errors"

	_ "modernc.org/sqlite"
)

// sqlitePragmas let a second process share the database: writers wait for
// the lock instead of failing with SQLITE_BUSY.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLiteEvidenceStore keeps alerts and photos in two append-only tables. The
// autoincrement seq column is the append order.
type SQLiteEvidenceStore struct {
	db *sql.DB
}

func NewSQLiteEvidenceStore(dbPath string) (*SQLiteEvidenceStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteEvidenceStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var _ sosout.EvidenceStore = (*SQLiteEvidenceStore)(nil)

var evidenceSchema = []string{`
CREATE TABLE IF NOT EXISTS emergency_alerts (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  session_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  created_at TEXT NOT NULL,
  latitude REAL,
  longitude REAL
);`, `
CREATE TABLE IF NOT EXISTS sos_photo_evidence (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  session_id TEXT NOT NULL,
  captured_at TEXT NOT NULL,
  image TEXT NOT NULL,
  latitude REAL,
  longitude REAL
);`,
}

func (s *SQLiteEvidenceStore) ensureSchema(ctx context.Context) error {
	for _, ddl := range evidenceSchema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create evidence tables: %w", err)
		}
	}
	return nil
}

func (s *SQLiteEvidenceStore) AppendAlert(ctx context.Context, record domain.AlertRecord) error {
	if err := record.Kind.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	lat, lng := nullableCoordinate(record.Location)
	const stmt = `
INSERT INTO emergency_alerts (id, session_id, user_id, kind, created_at, latitude, longitude)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		record.ID,
		record.SessionID,
		record.UserID,
		string(record.Kind),
		formatTimestamp(record.Timestamp),
		lat,
		lng,
	)
	if err != nil {
		return fmt.Errorf("%w: insert alert: %v", apperrors.ErrStorageWrite, err)
	}
	return nil
}

func (s *SQLiteEvidenceStore) AppendEvidence(ctx context.Context, record domain.EvidenceRecord) error {
	lat, lng := nullableCoordinate(record.Location)
	const stmt = `
INSERT INTO sos_photo_evidence (id, session_id, captured_at, image, latitude, longitude)
VALUES (?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		record.ID,
		record.SessionID,
		formatTimestamp(record.Timestamp),
		record.ImageData,
		lat,
		lng,
	)
	if err != nil {
		return fmt.Errorf("%w: insert evidence: %v", apperrors.ErrStorageWrite, err)
	}
	return nil
}

func (s *SQLiteEvidenceStore) ListAlerts(ctx context.Context) ([]domain.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, user_id, kind, created_at, latitude, longitude
FROM emergency_alerts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := []domain.AlertRecord{}
	for rows.Next() {
		var (
			record    domain.AlertRecord
			kind      string
			createdAt string
			lat, lng  sql.NullFloat64
		)
		if err := rows.Scan(&record.ID, &record.SessionID, &record.UserID, &kind, &createdAt, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		ts, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		record.Kind = domain.AlertKind(kind)
		record.Timestamp = ts
		record.Location = coordinateFromNull(lat, lng)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (s *SQLiteEvidenceStore) ListEvidence(ctx context.Context) ([]domain.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, captured_at, image, latitude, longitude
FROM sos_photo_evidence ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	out := []domain.EvidenceRecord{}
	for rows.Next() {
		var (
			record     domain.EvidenceRecord
			capturedAt string
			lat, lng   sql.NullFloat64
		)
		if err := rows.Scan(&record.ID, &record.SessionID, &capturedAt, &record.ImageData, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		ts, err := parseTimestamp(capturedAt)
		if err != nil {
			return nil, err
		}
		record.Timestamp = ts
		record.Location = coordinateFromNull(lat, lng)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}

func (s *SQLiteEvidenceStore) Close() error {
	return s.db.Close()
}

func nullableCoordinate(c *domain.Coordinate) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Latitude, Valid: true}, sql.NullFloat64{Float64: c.Longitude, Valid: true}
}

func coordinateFromNull(lat, lng sql.NullFloat64) *domain.Coordinate {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinate{Latitude: lat.Float64, Longitude: lng.Float64}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(domain.TimestampLayout)
}

func parseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(domain.TimestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return ts, nil
}
