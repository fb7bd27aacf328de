package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
	"ridesafe/internal/platform/clock"
	apperrors "ridesafe/internal/platform/errors"
	"ridesafe/internal/platform/id"
)

const (
	DefaultHoldThreshold   = 3 * time.Second
	DefaultCaptureInterval = 10 * time.Second
	DefaultLocationTimeout = 10 * time.Second
)

type Options struct {
	HoldThreshold            time.Duration
	CaptureInterval          time.Duration
	LocationTimeout          time.Duration
	RefreshLocationOnCapture bool
}

func (o Options) withDefaults() Options {
	if o.HoldThreshold <= 0 {
		o.HoldThreshold = DefaultHoldThreshold
	}
	if o.CaptureInterval <= 0 {
		o.CaptureInterval = DefaultCaptureInterval
	}
	if o.LocationTimeout <= 0 {
		o.LocationTimeout = DefaultLocationTimeout
	}
	return o
}

// Ports are the capabilities the controller coordinates. Only Store is
// required; a nil Location or Camera behaves as an unavailable capability.
type Ports struct {
	Location sosout.LocationProvider
	Camera   sosout.CaptureDevice
	Store    sosout.EvidenceStore
	Sink     sosout.StateSink
	Identity sosout.UserIdentity
	Metrics  sosout.Metrics
}

// Controller owns the SOS state machine:
//
//	INACTIVE --PressStart--> ARMING --threshold--> ACTIVE --Stop--> INACTIVE
//	ARMING --PressEnd--> INACTIVE
//
// Calls that do not match a transition are no-ops. The mutex is never held
// across capability calls, so Progress and Snapshot stay responsive while a
// fix or a frame is outstanding.
type Controller struct {
	clock   clock.Clock
	idGen   id.Generator
	ports   Ports
	opts    Options
	logger  *zap.Logger
	metrics sosout.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session domain.Session
	// generation invalidates timer callbacks and in-flight activations that
	// belong to an arming period or session which has since ended.
	generation   uint64
	armTimer     clock.Timer
	captureTimer clock.Timer
	handle       domain.DeviceHandle
	capturing    bool
	closed       bool

	// outbox holds sink notifications in the order their transitions were
	// decided under mu. A single drainer delivers them.
	outbox   []domain.Notification
	draining bool
}

func NewController(clk clock.Clock, idGen id.Generator, ports Ports, opts Options, logger *zap.Logger) (*Controller, error) {
	if ports.Store == nil {
		return nil, fmt.Errorf("evidence store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := ports.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		clock:   clk,
		idGen:   idGen,
		ports:   ports,
		opts:    opts.withDefaults(),
		logger:  logger.Named("sos"),
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
		session: domain.Session{Status: domain.StatusInactive},
	}, nil
}

func (c *Controller) Options() Options {
	return c.opts
}

// PressStart begins arming. It reports whether a new arming period started.
func (c *Controller) PressStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.session.Status != domain.StatusInactive {
		return false
	}
	c.generation++
	gen := c.generation
	c.session.Status = domain.StatusArming
	c.session.ArmedAt = c.clock.Now()
	c.armTimer = c.clock.AfterFunc(c.opts.HoldThreshold, func() { c.armElapsed(gen) })
	c.logger.Debug("sos arming", zap.Duration("threshold", c.opts.HoldThreshold))
	return true
}

// PressEnd cancels arming. Releasing while ACTIVE does nothing.
func (c *Controller) PressEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Status != domain.StatusArming {
		return false
	}
	c.generation++
	if c.armTimer != nil {
		c.armTimer.Stop()
		c.armTimer = nil
	}
	c.session.Status = domain.StatusInactive
	c.session.ArmedAt = time.Time{}
	c.logger.Debug("sos arming cancelled")
	return true
}

// Stop ends an active session. No new capture tick is scheduled once Stop
// holds the lock; a frame already being sampled may still be recorded.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if c.session.Status != domain.StatusActive {
		c.mu.Unlock()
		return false
	}
	c.generation++
	if c.captureTimer != nil {
		c.captureTimer.Stop()
		c.captureTimer = nil
	}
	handle := c.handle
	c.handle = ""
	sessionID := c.session.ID
	c.session.Status = domain.StatusInactive
	c.session.ID = ""
	c.session.ActivatedAt = time.Time{}
	c.session.CaptureActive = false
	c.outbox = append(c.outbox, domain.Notification{Kind: domain.NotifySOSDeactivated})
	c.mu.Unlock()

	c.releaseCamera(handle)
	c.logger.Info("sos deactivated", zap.String("session_id", sessionID))
	c.flush()
	return true
}

// Progress is elapsed arming time over the threshold, in [0,1]; 0 unless arming.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

func (c *Controller) progressLocked() float64 {
	if c.session.Status != domain.StatusArming {
		return 0
	}
	p := float64(c.clock.Now().Sub(c.session.ArmedAt)) / float64(c.opts.HoldThreshold)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Snapshot returns a copy of the session together with the current progress.
func (c *Controller) Snapshot() (domain.Session, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	s.LastLocation = domain.CopyCoordinate(c.session.LastLocation)
	return s, c.progressLocked()
}

// ReportLocation feeds a fix from a continuous source. It reports whether the
// fix replaced the current one.
func (c *Controller) ReportLocation(fix domain.Coordinate) bool {
	return c.applyFix(fix)
}

// Close tears down timers and the device and cancels outstanding capability
// calls. The controller accepts no further presses.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.PressEnd()
	c.Stop()
	c.cancel()
}

func (c *Controller) armElapsed(gen uint64) {
	c.mu.Lock()
	if c.generation != gen || c.session.Status != domain.StatusArming {
		c.mu.Unlock()
		return
	}
	c.armTimer = nil
	sessionID := c.idGen.New()
	c.session.ID = sessionID
	c.session.Status = domain.StatusActive
	c.session.ActivatedAt = c.clock.Now()
	c.session.ArmedAt = time.Time{}
	c.session.CaptureActive = false
	c.outbox = append(c.outbox, domain.Notification{Kind: domain.NotifySOSActivated})
	c.mu.Unlock()

	c.logger.Info("sos activated", zap.String("session_id", sessionID))
	c.metrics.Activated()
	c.flush()
	c.activate(gen, sessionID)
}

// activate runs the entry sequence for a new session. The alert is written
// before the capture timer is armed so it always precedes the first frame.
func (c *Controller) activate(gen uint64, sessionID string) {
	c.acquireFix()
	opened := c.openCamera(gen)
	c.appendAlert(sessionID)
	if !opened {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.session.Status != domain.StatusActive {
		return
	}
	c.session.CaptureActive = true
	c.scheduleCaptureLocked(gen, sessionID)
}

func (c *Controller) acquireFix() {
	if c.ports.Location == nil {
		c.capabilityFailed(domain.CapabilityLocation, apperrors.ErrCapabilityUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.LocationTimeout)
	defer cancel()
	fix, err := c.ports.Location.Fix(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrCapabilityTimeout) {
			err = fmt.Errorf("%w: %v", apperrors.ErrCapabilityTimeout, err)
		}
		c.capabilityFailed(domain.CapabilityLocation, err)
		return
	}
	if err := fix.Validate(); err != nil {
		c.capabilityFailed(domain.CapabilityLocation, err)
		return
	}
	c.applyFix(fix)
}

func (c *Controller) applyFix(fix domain.Coordinate) bool {
	if err := fix.Validate(); err != nil {
		c.logger.Warn("invalid location fix rejected", zap.Error(err))
		return false
	}
	if fix.AcquiredAt.IsZero() {
		fix.AcquiredAt = c.clock.Now()
	}
	c.mu.Lock()
	if !fix.Supersedes(c.session.LastLocation) {
		c.mu.Unlock()
		c.logger.Debug("stale location fix ignored", zap.Time("acquired_at", fix.AcquiredAt))
		return false
	}
	stored := fix
	c.session.LastLocation = &stored
	c.outbox = append(c.outbox, domain.Notification{Kind: domain.NotifyLocationUpdated, Location: domain.CopyCoordinate(&fix)})
	c.mu.Unlock()

	c.flush()
	return true
}

func (c *Controller) openCamera(gen uint64) bool {
	if c.ports.Camera == nil {
		c.capabilityFailed(domain.CapabilityCamera, apperrors.ErrCapabilityUnavailable)
		return false
	}
	handle, err := c.ports.Camera.Open(c.ctx)
	if err != nil {
		c.capabilityFailed(domain.CapabilityCamera, err)
		return false
	}
	c.mu.Lock()
	if c.generation != gen || c.session.Status != domain.StatusActive {
		c.mu.Unlock()
		c.releaseCamera(handle)
		return false
	}
	c.handle = handle
	c.mu.Unlock()
	return true
}

func (c *Controller) releaseCamera(handle domain.DeviceHandle) {
	if handle == "" || c.ports.Camera == nil {
		return
	}
	if err := c.ports.Camera.Close(handle); err != nil {
		c.logger.Warn("release camera", zap.Error(err))
	}
}

func (c *Controller) appendAlert(sessionID string) {
	c.mu.Lock()
	location := domain.CopyCoordinate(c.session.LastLocation)
	c.mu.Unlock()

	userID := ""
	if c.ports.Identity != nil {
		userID = c.ports.Identity.CurrentUserID(c.ctx)
	}
	record := domain.AlertRecord{
		ID:        c.idGen.New(),
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: c.clock.Now(),
		Location:  location,
		Kind:      domain.AlertActivated,
	}
	if err := c.ports.Store.AppendAlert(c.storeContext(), record); err != nil {
		c.capabilityFailed(domain.CapabilityStorage, err)
		return
	}
	c.logger.Info("sos alert recorded",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.Bool("has_location", location != nil),
	)
}

func (c *Controller) scheduleCaptureLocked(gen uint64, sessionID string) {
	c.captureTimer = c.clock.AfterFunc(c.opts.CaptureInterval, func() { c.captureTick(gen, sessionID) })
}

// captureTick re-arms the timer before sampling so the cadence does not drift
// with capture latency. A tick that finds the previous sample still running is
// skipped, so at most one capture is in flight per session.
func (c *Controller) captureTick(gen uint64, sessionID string) {
	c.mu.Lock()
	if c.generation != gen || c.session.Status != domain.StatusActive || c.handle == "" {
		c.mu.Unlock()
		return
	}
	c.scheduleCaptureLocked(gen, sessionID)
	if c.capturing {
		c.mu.Unlock()
		c.logger.Debug("capture still in flight, tick skipped", zap.String("session_id", sessionID))
		return
	}
	c.capturing = true
	handle := c.handle
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.capturing = false
		c.mu.Unlock()
	}()
	if c.opts.RefreshLocationOnCapture {
		c.acquireFix()
	}
	c.captureFrame(handle, sessionID)
}

func (c *Controller) captureFrame(handle domain.DeviceHandle, sessionID string) {
	image, err := c.ports.Camera.Capture(c.ctx, handle)
	if err != nil {
		c.capabilityFailed(domain.CapabilityCamera, err)
		return
	}
	c.mu.Lock()
	location := domain.CopyCoordinate(c.session.LastLocation)
	c.mu.Unlock()

	record := domain.EvidenceRecord{
		ID:        c.idGen.New(),
		SessionID: sessionID,
		Timestamp: c.clock.Now(),
		ImageData: image,
		Location:  location,
	}
	if err := c.ports.Store.AppendEvidence(c.storeContext(), record); err != nil {
		c.capabilityFailed(domain.CapabilityStorage, err)
		return
	}
	c.metrics.EvidenceCaptured()
	c.logger.Debug("sos evidence captured", zap.String("session_id", sessionID), zap.Int("bytes", len(image)))
}

// storeContext survives Close so records produced during shutdown still land.
func (c *Controller) storeContext() context.Context {
	return context.WithoutCancel(c.ctx)
}

// flush delivers queued notifications in FIFO order. Whoever finds the queue
// idle drains it; a transition decided while a Publish is running (even from
// inside the sink) is delivered after it by the same drainer.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.outbox) > 0 {
		n := c.outbox[0]
		c.outbox = c.outbox[1:]
		c.mu.Unlock()
		c.publish(n)
		c.mu.Lock()
	}
	c.outbox = nil
	c.draining = false
	c.mu.Unlock()
}

func (c *Controller) publish(n domain.Notification) {
	if c.ports.Sink == nil {
		return
	}
	c.ports.Sink.Publish(c.storeContext(), n)
}

func (c *Controller) capabilityFailed(capability string, err error) {
	c.logger.Warn("sos capability degraded", zap.String("capability", capability), zap.Error(err))
	c.metrics.CapabilityFailed(capability, err)
}

type noopMetrics struct{}

func (noopMetrics) Activated()                     {}
func (noopMetrics) EvidenceCaptured()              {}
func (noopMetrics) CapabilityFailed(string, error) {}
