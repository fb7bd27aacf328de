package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
	apperrors "ridesafe/internal/platform/errors"
)

const (
	alertsKey   = "emergencyAlerts"
	evidenceKey = "sosPhotos"
)

type coordinateJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type alertJSON struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	UserID    string          `json:"userId"`
	Timestamp string          `json:"timestamp"`
	Location  *coordinateJSON `json:"location"`
	Type      string          `json:"type"`
}

type photoJSON struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"`
	Image     string          `json:"image"`
	Location  *coordinateJSON `json:"location"`
}

// FileEvidenceStore mirrors browser local storage: one JSON array per key,
// rewritten whole on each append through a temp file and rename. Appends hold
// an exclusive lock on <dir>/.lock so processes sharing the directory do not
// drop each other's records.
type FileEvidenceStore struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

func NewFileEvidenceStore(dir string) *FileEvidenceStore {
	return &FileEvidenceStore{dir: dir, lock: flock.New(filepath.Join(dir, ".lock"))}
}

var _ sosout.EvidenceStore = (*FileEvidenceStore)(nil)

func (s *FileEvidenceStore) AppendAlert(_ context.Context, record domain.AlertRecord) error {
	if err := record.Kind.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire(true)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageWrite, err)
	}
	defer unlock()
	items := []alertJSON{}
	if err := s.load(alertsKey, &items); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageWrite, err)
	}
	items = append(items, alertJSON{
		ID:        record.ID,
		SessionID: record.SessionID,
		UserID:    record.UserID,
		Timestamp: formatTimestamp(record.Timestamp),
		Location:  toCoordinateJSON(record.Location),
		Type:      string(record.Kind),
	})
	return s.save(alertsKey, items)
}

func (s *FileEvidenceStore) AppendEvidence(_ context.Context, record domain.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire(true)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageWrite, err)
	}
	defer unlock()
	items := []photoJSON{}
	if err := s.load(evidenceKey, &items); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageWrite, err)
	}
	items = append(items, photoJSON{
		ID:        record.ID,
		SessionID: record.SessionID,
		Timestamp: formatTimestamp(record.Timestamp),
		Image:     record.ImageData,
		Location:  toCoordinateJSON(record.Location),
	})
	return s.save(evidenceKey, items)
}

func (s *FileEvidenceStore) ListAlerts(_ context.Context) ([]domain.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire(false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	items := []alertJSON{}
	if err := s.load(alertsKey, &items); err != nil {
		return nil, err
	}
	out := make([]domain.AlertRecord, 0, len(items))
	for _, item := range items {
		ts, err := parseTimestamp(item.Timestamp)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.AlertRecord{
			ID:        item.ID,
			SessionID: item.SessionID,
			UserID:    item.UserID,
			Timestamp: ts,
			Location:  fromCoordinateJSON(item.Location),
			Kind:      domain.AlertKind(item.Type),
		})
	}
	return out, nil
}

func (s *FileEvidenceStore) ListEvidence(_ context.Context) ([]domain.EvidenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire(false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	items := []photoJSON{}
	if err := s.load(evidenceKey, &items); err != nil {
		return nil, err
	}
	out := make([]domain.EvidenceRecord, 0, len(items))
	for _, item := range items {
		ts, err := parseTimestamp(item.Timestamp)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.EvidenceRecord{
			ID:        item.ID,
			SessionID: item.SessionID,
			Timestamp: ts,
			ImageData: item.Image,
			Location:  fromCoordinateJSON(item.Location),
		})
	}
	return out, nil
}

// acquire takes the directory lock, shared for reads and exclusive for
// appends, and returns its release func.
func (s *FileEvidenceStore) acquire(exclusive bool) (func(), error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	lock := s.lock.RLock
	if exclusive {
		lock = s.lock.Lock
	}
	if err := lock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.dir, err)
	}
	return func() { _ = s.lock.Unlock() }, nil
}

func (s *FileEvidenceStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileEvidenceStore) load(key string, into any) error {
	payload, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *FileEvidenceStore) save(key string, items any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create storage dir: %v", apperrors.ErrStorageWrite, err)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", apperrors.ErrStorageWrite, key, err)
	}
	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", apperrors.ErrStorageWrite, key, err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", apperrors.ErrStorageWrite, key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: close %s: %v", apperrors.ErrStorageWrite, key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: replace %s: %v", apperrors.ErrStorageWrite, key, err)
	}
	return nil
}

func toCoordinateJSON(c *domain.Coordinate) *coordinateJSON {
	if c == nil {
		return nil
	}
	return &coordinateJSON{Lat: c.Latitude, Lng: c.Longitude}
}

func fromCoordinateJSON(c *coordinateJSON) *domain.Coordinate {
	if c == nil {
		return nil
	}
	return &domain.Coordinate{Latitude: c.Lat, Longitude: c.Lng}
}
