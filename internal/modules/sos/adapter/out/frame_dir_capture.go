package out

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
	apperrors "ridesafe/internal/platform/errors"
)

// FrameDirCapture replays still images from a directory in name order,
// wrapping around at the end. It stands in for a camera on hosts without one.
// Only one handle may be open at a time.
type FrameDirCapture struct {
	dir string

	mu     sync.Mutex
	frames []string
	next   int
	handle domain.DeviceHandle
	opened int
}

func NewFrameDirCapture(dir string) *FrameDirCapture {
	return &FrameDirCapture{dir: dir}
}

var _ sosout.CaptureDevice = (*FrameDirCapture)(nil)

func (c *FrameDirCapture) Open(_ context.Context) (domain.DeviceHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != "" {
		return "", fmt.Errorf("%w: frame source already open", apperrors.ErrDeviceBusy)
	}
	frames, err := listFrames(c.dir)
	if err != nil {
		return "", err
	}
	c.frames = frames
	c.next = 0
	c.opened++
	c.handle = domain.DeviceHandle("frames-" + strconv.Itoa(c.opened))
	return c.handle, nil
}

func (c *FrameDirCapture) Capture(ctx context.Context, handle domain.DeviceHandle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	if handle == "" || handle != c.handle {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: handle %q is not open", apperrors.ErrCapabilityUnavailable, handle)
	}
	path := c.frames[c.next]
	c.next = (c.next + 1) % len(c.frames)
	c.mu.Unlock()

	payload, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read frame %s: %w", filepath.Base(path), err)
	}
	return dataURL(path, payload), nil
}

func (c *FrameDirCapture) Close(handle domain.DeviceHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if handle == "" || handle != c.handle {
		return nil
	}
	c.handle = ""
	c.frames = nil
	return nil
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: frame dir %s", apperrors.ErrCapabilityUnavailable, dir)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%w: frame dir %s", apperrors.ErrPermissionDenied, dir)
		default:
			return nil, fmt.Errorf("read frame dir: %w", err)
		}
	}
	frames := []string{}
	for _, entry := range entries {
		if entry.IsDir() || mimeFor(entry.Name()) == "" {
			continue
		}
		frames = append(frames, filepath.Join(dir, entry.Name()))
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", apperrors.ErrCapabilityUnavailable, dir)
	}
	sort.Strings(frames)
	return frames, nil
}

func mimeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return ""
	}
}

func dataURL(path string, payload []byte) string {
	return "data:" + mimeFor(path) + ";base64," + base64.StdEncoding.EncodeToString(payload)
}
