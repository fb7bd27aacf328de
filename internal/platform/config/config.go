package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHoldThreshold   = 3 * time.Second
	DefaultCaptureInterval = 10 * time.Second
	DefaultLocationTimeout = 10 * time.Second
	DefaultHTTPAddr        = "127.0.0.1:8080"
)

type Config struct {
	DataPath   string
	StatePath  string
	DBPath     string
	ConfigPath string
	ReportsDir string

	SOS      SOSConfig      `yaml:"sos"`
	User     UserConfig     `yaml:"user"`
	Location LocationConfig `yaml:"location"`
	Capture  CaptureConfig  `yaml:"capture"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type SOSConfig struct {
	HoldThreshold            time.Duration `yaml:"hold_threshold"`
	CaptureInterval          time.Duration `yaml:"capture_interval"`
	LocationTimeout          time.Duration `yaml:"location_timeout"`
	RefreshLocationOnCapture bool          `yaml:"refresh_location_on_capture"`
}

type UserConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Phone  string `yaml:"phone"`
	Gender string `yaml:"gender"`
}

// LocationConfig selects the fix source: "static", "file" or "none".
type LocationConfig struct {
	Source    string  `yaml:"source"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	FixPath   string  `yaml:"fix_path"`
}

// CaptureConfig selects the camera: "dir", "plugin" or "none".
type CaptureConfig struct {
	Device       string `yaml:"device"`
	FrameDir     string `yaml:"frame_dir"`
	PluginBinary string `yaml:"plugin_binary"`
}

// StoreConfig selects evidence persistence: "sqlite" or "file".
type StoreConfig struct {
	Kind string `yaml:"kind"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
	JSON  bool   `yaml:"json"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// New builds the configuration for a data directory: defaults, then
// <data>/.ridesafe/config.yaml, then .env and RIDESAFE_* variables.
func New(dataPath string) (Config, error) {
	if dataPath == "" {
		return Config{}, fmt.Errorf("data path is required")
	}
	statePath := filepath.Join(dataPath, ".ridesafe")
	cfg := Config{
		DataPath:   dataPath,
		StatePath:  statePath,
		DBPath:     filepath.Join(statePath, "ridesafe.db"),
		ConfigPath: filepath.Join(statePath, "config.yaml"),
		ReportsDir: filepath.Join(dataPath, "reports"),
		SOS: SOSConfig{
			HoldThreshold:   DefaultHoldThreshold,
			CaptureInterval: DefaultCaptureInterval,
			LocationTimeout: DefaultLocationTimeout,
		},
		User:     UserConfig{ID: "guest", Name: "Guest Rider"},
		Location: LocationConfig{Source: "none"},
		Capture:  CaptureConfig{Device: "none"},
		Store:    StoreConfig{Kind: "sqlite"},
		Log:      LogConfig{Level: "info", Path: filepath.Join(statePath, "ridesafe.log")},
		HTTP:     HTTPConfig{Addr: DefaultHTTPAddr},
	}
	if err := cfg.loadFile(); err != nil {
		return Config{}, err
	}
	if err := godotenv.Load(filepath.Join(dataPath, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile() error {
	payload, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(payload, c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"RIDESAFE_USER_ID":        &c.User.ID,
		"RIDESAFE_USER_NAME":      &c.User.Name,
		"RIDESAFE_USER_PHONE":     &c.User.Phone,
		"RIDESAFE_LOCATION":       &c.Location.Source,
		"RIDESAFE_LOCATION_FILE":  &c.Location.FixPath,
		"RIDESAFE_CAPTURE":        &c.Capture.Device,
		"RIDESAFE_FRAME_DIR":      &c.Capture.FrameDir,
		"RIDESAFE_CAPTURE_PLUGIN": &c.Capture.PluginBinary,
		"RIDESAFE_STORE":          &c.Store.Kind,
		"RIDESAFE_LOG_LEVEL":      &c.Log.Level,
		"RIDESAFE_LOG_PATH":       &c.Log.Path,
		"RIDESAFE_HTTP_ADDR":      &c.HTTP.Addr,
	}
	for key, target := range strs {
		if value, ok := os.LookupEnv(key); ok {
			*target = strings.TrimSpace(value)
		}
	}

	durations := map[string]*time.Duration{
		"RIDESAFE_HOLD_THRESHOLD":   &c.SOS.HoldThreshold,
		"RIDESAFE_CAPTURE_INTERVAL": &c.SOS.CaptureInterval,
		"RIDESAFE_LOCATION_TIMEOUT": &c.SOS.LocationTimeout,
	}
	for key, target := range durations {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*target = parsed
	}

	floats := map[string]*float64{
		"RIDESAFE_LATITUDE":  &c.Location.Latitude,
		"RIDESAFE_LONGITUDE": &c.Location.Longitude,
	}
	for key, target := range floats {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*target = parsed
	}

	if value, ok := os.LookupEnv("RIDESAFE_REFRESH_LOCATION"); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("parse RIDESAFE_REFRESH_LOCATION: %w", err)
		}
		c.SOS.RefreshLocationOnCapture = parsed
	}
	return nil
}

// resolvePaths anchors relative file settings at the data directory.
func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.Location.FixPath, &c.Capture.FrameDir, &c.Log.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.DataPath, *p)
		}
	}
}

func (c Config) Validate() error {
	if c.SOS.HoldThreshold <= 0 {
		return fmt.Errorf("sos.hold_threshold must be positive")
	}
	if c.SOS.CaptureInterval <= 0 {
		return fmt.Errorf("sos.capture_interval must be positive")
	}
	if c.SOS.LocationTimeout <= 0 {
		return fmt.Errorf("sos.location_timeout must be positive")
	}
	switch c.Location.Source {
	case "none", "static":
	case "file":
		if c.Location.FixPath == "" {
			return fmt.Errorf("location.fix_path is required for file source")
		}
	default:
		return fmt.Errorf("unknown location source %q", c.Location.Source)
	}
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 || c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("location coordinates out of range")
	}
	switch c.Capture.Device {
	case "none":
	case "dir":
		if c.Capture.FrameDir == "" {
			return fmt.Errorf("capture.frame_dir is required for dir device")
		}
	case "plugin":
		if c.Capture.PluginBinary == "" {
			return fmt.Errorf("capture.plugin_binary is required for plugin device")
		}
	default:
		return fmt.Errorf("unknown capture device %q", c.Capture.Device)
	}
	switch c.Store.Kind {
	case "sqlite", "file":
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	return nil
}
