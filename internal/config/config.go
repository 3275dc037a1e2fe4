// Package config loads the application configuration from YAML, a .env file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goggybox/touchtypEd/internal/hook"
	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/segment"
	"github.com/goggybox/touchtypEd/internal/stabilizer"
)

// Environment variables that override the file configuration.
const (
	EnvCamera   = "TOUCHTYPED_CAMERA"
	EnvVideo    = "TOUCHTYPED_VIDEO"
	EnvAddr     = "TOUCHTYPED_ADDR"
	EnvDB       = "TOUCHTYPED_DB"
	EnvLogLevel = "TOUCHTYPED_LOG_LEVEL"
	EnvLogFile  = "TOUCHTYPED_LOG_FILE"
)

// Detector backends.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorMock      = "mock"
)

// Config is the complete application configuration.
type Config struct {
	Camera   CameraConfig       `yaml:"camera"`
	Server   ServerConfig       `yaml:"server"`
	Store    StoreConfig        `yaml:"store"`
	Log      LogConfig          `yaml:"log"`
	Pipeline PipelineConfig     `yaml:"pipeline"`
	Classes  []ClassConfig      `yaml:"classes" validate:"min=1,unique=Name,dive"`
	Targets  []placement.Target `yaml:"targets" validate:"min=1"`
	Hooks    HooksConfig        `yaml:"hooks"`
}

type CameraConfig struct {
	Device int `yaml:"device" validate:"gte=0"`
	// File replays a recorded video instead of opening Device.
	File string `yaml:"file"`
	// Realtime paces file playback at FPS instead of reading flat out.
	Realtime bool `yaml:"realtime"`
	FPS      int  `yaml:"fps" validate:"gte=1,lte=120"`
	Width    int  `yaml:"width" validate:"gte=0"`
	Height   int  `yaml:"height" validate:"gte=0"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" validate:"required"`
	StaticDir string `yaml:"static_dir"`
	Disabled  bool   `yaml:"disabled"`
	// PlacementRate caps websocket messages per second while the status is
	// unchanged. Zero sends every frame.
	PlacementRate float64 `yaml:"placement_rate" validate:"gte=0"`
}

type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	File  string `yaml:"file"`
}

// HooksConfig lists the commands run when the placement status changes.
type HooksConfig struct {
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
	Commands []hook.Hook   `yaml:"commands" validate:"unique=Name,dive"`
}

// PipelineConfig holds the per-frame processing parameters.
type PipelineConfig struct {
	History         int     `yaml:"history" validate:"gte=1"`
	ApproxTolerance float64 `yaml:"approx_tolerance" validate:"gte=0,lte=1"`
	MinVertices     int     `yaml:"min_vertices" validate:"gte=3"`
	Preprocess      bool    `yaml:"preprocess"`
	Morphology      bool    `yaml:"morphology"`
	// DebounceFrames of 0 or 1 reports every frame's verdict as is.
	DebounceFrames int `yaml:"debounce_frames" validate:"gte=0"`
	// MirrorHandedness swaps Left and Right, for detectors that assume a
	// mirrored selfie image.
	MirrorHandedness bool    `yaml:"mirror_handedness"`
	IndexLandmark    int     `yaml:"index_landmark" validate:"gte=0,lte=20"`
	SecondLandmark   int     `yaml:"second_landmark" validate:"gte=0,lte=20"`
	DefaultThreshold float64 `yaml:"default_threshold"`
	Detector         string  `yaml:"detector" validate:"oneof=mediapipe mock"`
	DetectorScript   string  `yaml:"detector_script"`
}

// ClassConfig describes one anchor class.
type ClassConfig struct {
	Name           region.Class     `yaml:"name" validate:"required"`
	Cap            int              `yaml:"cap" validate:"gte=1"`
	MinRegions     int              `yaml:"min_regions" validate:"gte=0"`
	Sided          bool             `yaml:"sided"`
	RejectOutliers bool             `yaml:"reject_outliers"`
	Threshold      *float64         `yaml:"threshold,omitempty"`
	Range          segment.HSVRange `yaml:"range"`
}

// Default returns the configuration for the standard keyboard layout: three
// green zones and one blue zone.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{Device: 0, Realtime: true, FPS: 15, Width: 640, Height: 480},
		Server: ServerConfig{Addr: "127.0.0.1:8080", PlacementRate: 10},
		Store:  StoreConfig{Path: "touchtyped.db"},
		Log:    LogConfig{Level: "info"},
		Pipeline: PipelineConfig{
			History:          stabilizer.DefaultHistory,
			ApproxTolerance:  region.DefaultApproxTolerance,
			MinVertices:      region.DefaultMinVertices,
			Preprocess:       true,
			Morphology:       true,
			IndexLandmark:    8,
			SecondLandmark:   20,
			DefaultThreshold: placement.DefaultDistanceThreshold,
			Detector:         DetectorMediaPipe,
		},
		Classes: []ClassConfig{
			{Name: region.ClassGreen, Cap: 3, MinRegions: 2, Sided: true, RejectOutliers: true, Range: segment.DefaultGreen},
			{Name: region.ClassBlue, Cap: 1, Sided: false, RejectOutliers: true, Range: segment.DefaultBlue},
		},
		Targets: placement.DefaultTargets(),
		Hooks:   HooksConfig{Timeout: hook.DefaultTimeout},
	}
}

// Load reads the YAML file at path over the defaults, applies the optional
// .env file and environment overrides, and validates the result. An empty
// path skips the file; a missing envFile is ignored.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvCamera); ok {
		device, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCamera, err)
		}
		c.Camera.Device = device
	}
	if v, ok := os.LookupEnv(EnvVideo); ok {
		c.Camera.File = v
	}
	if v, ok := os.LookupEnv(EnvAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := os.LookupEnv(EnvDB); ok {
		c.Store.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.Log.File = v
	}
	return nil
}

// Validate checks field bounds and that every target refers to a configured
// class.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	for i, t := range c.Targets {
		if _, ok := c.Class(t.Class); !ok {
			return fmt.Errorf("target %d: unknown class %q", i, t.Class)
		}
		if t.Side != placement.Left && t.Side != placement.Right {
			return fmt.Errorf("target %d: invalid side %q", i, t.Side)
		}
		if t.Finger != placement.Index && t.Finger != placement.Second {
			return fmt.Errorf("target %d: invalid finger %q", i, t.Finger)
		}
		if t.Slot < 0 {
			return fmt.Errorf("target %d: negative slot", i)
		}
	}
	return nil
}

// Class returns the configuration of the named class.
func (c *Config) Class(name region.Class) (ClassConfig, bool) {
	for _, cls := range c.Classes {
		if cls.Name == name {
			return cls, true
		}
	}
	return ClassConfig{}, false
}

// Ranges returns the configured HSV range of every class.
func (c *Config) Ranges() map[region.Class]segment.HSVRange {
	out := make(map[region.Class]segment.HSVRange, len(c.Classes))
	for _, cls := range c.Classes {
		out[cls.Name] = cls.Range
	}
	return out
}

// Placement returns the evaluator configuration.
func (c *Config) Placement() placement.Config {
	pc := placement.Config{
		Targets:          append([]placement.Target(nil), c.Targets...),
		MinRegions:       make(map[region.Class]int),
		Thresholds:       make(map[region.Class]float64),
		DefaultThreshold: c.Pipeline.DefaultThreshold,
	}
	for _, cls := range c.Classes {
		if cls.MinRegions > 0 {
			pc.MinRegions[cls.Name] = cls.MinRegions
		}
		if cls.Threshold != nil {
			pc.Thresholds[cls.Name] = *cls.Threshold
		}
	}
	return pc
}

// ExtractParams returns the region extraction parameters for cls.
func (c *Config) ExtractParams(cls ClassConfig) region.Params {
	return region.Params{
		ApproxTolerance: c.Pipeline.ApproxTolerance,
		MinVertices:     c.Pipeline.MinVertices,
		Cap:             cls.Cap,
	}
}
