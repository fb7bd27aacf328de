package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sosrpc "ridesafe/internal/modules/sos/adapter/out/rpc"
)

const (
	frameWidth  = 160
	frameHeight = 120
)

// camera renders synthetic frames so the plugin transport can be exercised
// without hardware. Only one handle may be open at a time.
type camera struct {
	mu     sync.Mutex
	handle string
	opened int
	frame  int
}

func (c *camera) Open(_ context.Context, _ *sosrpc.Empty) (*sosrpc.OpenResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != "" {
		return nil, status.Error(codes.ResourceExhausted, "camera already open")
	}
	c.opened++
	c.handle = fmt.Sprintf("testcam-%d", c.opened)
	return &sosrpc.OpenResponse{Handle: c.handle}, nil
}

func (c *camera) Capture(_ context.Context, in *sosrpc.CaptureRequest) (*sosrpc.CaptureResponse, error) {
	c.mu.Lock()
	if in.Handle == "" || in.Handle != c.handle {
		c.mu.Unlock()
		return nil, status.Errorf(codes.NotFound, "unknown handle %q", in.Handle)
	}
	c.frame++
	frame := c.frame
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, render(frame), &jpeg.Options{Quality: 70}); err != nil {
		return nil, status.Errorf(codes.Internal, "encode frame: %v", err)
	}
	return &sosrpc.CaptureResponse{Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}

func (c *camera) Close(_ context.Context, in *sosrpc.CloseRequest) (*sosrpc.Empty, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if in.Handle == c.handle {
		c.handle = ""
	}
	return &sosrpc.Empty{}, nil
}

// render draws a diagonal gradient whose phase moves with each frame.
func render(frame int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	shift := frame * 8
	for y := 0; y < frameHeight; y++ {
		for x := 0; x < frameWidth; x++ {
			v := uint8((x + y + shift) % 256)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: uint8(frame * 16 % 256), A: 255})
		}
	}
	return img
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: sosrpc.HandshakeConfig,
		Plugins:         sosrpc.PluginMap(&camera{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
