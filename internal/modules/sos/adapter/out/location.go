package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
	"ridesafe/internal/platform/clock"
	apperrors "ridesafe/internal/platform/errors"
)

// StaticLocation always reports the configured coordinate.
type StaticLocation struct {
	latitude  float64
	longitude float64
	clock     clock.Clock
}

func NewStaticLocation(latitude, longitude float64, clk clock.Clock) *StaticLocation {
	return &StaticLocation{latitude: latitude, longitude: longitude, clock: clk}
}

var (
	_ sosout.LocationProvider = (*StaticLocation)(nil)
	_ sosout.LocationProvider = (*FileLocation)(nil)
)

func (l *StaticLocation) Fix(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, err
	}
	return domain.Coordinate{Latitude: l.latitude, Longitude: l.longitude, AcquiredAt: l.clock.Now()}, nil
}

type fixFile struct {
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	AcquiredAt string   `json:"acquired_at"`
}

// FileLocation reads the latest fix from a JSON file that an external GPS
// daemon rewrites, e.g. {"lat":52.52,"lng":13.405,"acquired_at":"..."}.
type FileLocation struct {
	path  string
	clock clock.Clock
}

func NewFileLocation(path string, clk clock.Clock) *FileLocation {
	return &FileLocation{path: path, clock: clk}
}

func (l *FileLocation) Fix(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, err
	}
	payload, err := os.ReadFile(l.path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return domain.Coordinate{}, fmt.Errorf("%w: no fix at %s", apperrors.ErrCapabilityUnavailable, l.path)
		case errors.Is(err, fs.ErrPermission):
			return domain.Coordinate{}, fmt.Errorf("%w: %s", apperrors.ErrPermissionDenied, l.path)
		default:
			return domain.Coordinate{}, fmt.Errorf("read fix: %w", err)
		}
	}
	var raw fixFile
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: decode fix: %v", apperrors.ErrCapabilityUnavailable, err)
	}
	if raw.Lat == nil || raw.Lng == nil {
		return domain.Coordinate{}, fmt.Errorf("%w: fix has no coordinates", apperrors.ErrCapabilityUnavailable)
	}
	fix := domain.Coordinate{Latitude: *raw.Lat, Longitude: *raw.Lng, AcquiredAt: l.clock.Now()}
	if raw.AcquiredAt != "" {
		acquired, err := time.Parse(time.RFC3339Nano, raw.AcquiredAt)
		if err != nil {
			return domain.Coordinate{}, fmt.Errorf("%w: parse acquired_at: %v", apperrors.ErrCapabilityUnavailable, err)
		}
		fix.AcquiredAt = acquired.UTC()
	}
	if err := fix.Validate(); err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: %v", apperrors.ErrCapabilityUnavailable, err)
	}
	return fix, nil
}
