package out

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sosrpc "ridesafe/internal/modules/sos/adapter/out/rpc"
	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
	apperrors "ridesafe/internal/platform/errors"
)

const (
	defaultPluginStartTimeout = 3 * time.Second
	defaultPluginCallTimeout  = 5 * time.Second
)

// PluginCaptureDevice drives an out-of-process camera over go-plugin. The
// plugin process is started on the first Open and lives until Shutdown.
type PluginCaptureDevice struct {
	binary string
	logger hclog.Logger

	mu     sync.Mutex
	client *plugin.Client
	rpc    sosrpc.CaptureDeviceClient
}

func NewPluginCaptureDevice(binary string, logger hclog.Logger) *PluginCaptureDevice {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PluginCaptureDevice{binary: binary, logger: logger.Named("capture-plugin")}
}

// newPluginCaptureDeviceWithClient wraps an already connected client.
func newPluginCaptureDeviceWithClient(client sosrpc.CaptureDeviceClient) *PluginCaptureDevice {
	return &PluginCaptureDevice{logger: hclog.NewNullLogger(), rpc: client}
}

var _ sosout.CaptureDevice = (*PluginCaptureDevice)(nil)

func (d *PluginCaptureDevice) Open(ctx context.Context) (domain.DeviceHandle, error) {
	client, err := d.connect()
	if err != nil {
		return "", err
	}
	callCtx, cancel := callContext(ctx, defaultPluginCallTimeout)
	defer cancel()
	response, err := client.Open(callCtx)
	if err != nil {
		return "", mapPluginError("open camera", err)
	}
	if response.Handle == "" {
		return "", fmt.Errorf("%w: plugin returned empty handle", apperrors.ErrCapabilityUnavailable)
	}
	return domain.DeviceHandle(response.Handle), nil
}

func (d *PluginCaptureDevice) Capture(ctx context.Context, handle domain.DeviceHandle) (string, error) {
	client, err := d.connected()
	if err != nil {
		return "", err
	}
	callCtx, cancel := callContext(ctx, defaultPluginCallTimeout)
	defer cancel()
	response, err := client.Capture(callCtx, &sosrpc.CaptureRequest{Handle: string(handle)})
	if err != nil {
		return "", mapPluginError("capture frame", err)
	}
	return response.Image, nil
}

func (d *PluginCaptureDevice) Close(handle domain.DeviceHandle) error {
	if handle == "" {
		return nil
	}
	client, err := d.connected()
	if err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultPluginCallTimeout)
	defer cancel()
	if err := client.Close(ctx, &sosrpc.CloseRequest{Handle: string(handle)}); err != nil {
		return mapPluginError("close camera", err)
	}
	return nil
}

// Shutdown kills the plugin process.
func (d *PluginCaptureDevice) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		d.client.Kill()
		d.client = nil
		d.rpc = nil
	}
}

func (d *PluginCaptureDevice) connected() (sosrpc.CaptureDeviceClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rpc == nil {
		return nil, fmt.Errorf("%w: capture plugin not started", apperrors.ErrCapabilityUnavailable)
	}
	return d.rpc, nil
}

func (d *PluginCaptureDevice) connect() (sosrpc.CaptureDeviceClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rpc != nil {
		return d.rpc, nil
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  sosrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          sosrpc.PluginMap(nil),
		Cmd:              exec.Command(d.binary),
		Managed:          true,
		StartTimeout:     defaultPluginStartTimeout,
		Logger:           d.logger,
	})
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("%w: start capture plugin: %v", apperrors.ErrCapabilityUnavailable, err)
	}
	raw, err := rpcClient.Dispense(sosrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("%w: dispense capture plugin: %v", apperrors.ErrCapabilityUnavailable, err)
	}
	typed, ok := raw.(sosrpc.CaptureDeviceClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("capture plugin rpc client type mismatch")
	}
	d.client = client
	d.rpc = typed
	return typed, nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func mapPluginError(op string, err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s: %v", apperrors.ErrPermissionDenied, op, err)
	case codes.ResourceExhausted, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s: %v", apperrors.ErrDeviceBusy, op, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s: %v", apperrors.ErrCapabilityTimeout, op, err)
	case codes.Unavailable, codes.NotFound:
		return fmt.Errorf("%w: %s: %v", apperrors.ErrCapabilityUnavailable, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
