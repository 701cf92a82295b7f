// Package config loads Settings.ini into the typed configuration the
// rest of the program consumes.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"

	"github.com/M-Enderle/FocusStack/internal/focus"
	"github.com/M-Enderle/FocusStack/internal/stack"
)

// Settings is the full program configuration.
type Settings struct {
	Stacking  StackingSettings
	Remote    RemoteSettings
	Templates TemplateSettings
	Render    RenderSettings
	Logging   LoggingSettings
	Database  DatabaseSettings
}

// StackingSettings configures the run itself.
type StackingSettings struct {
	Direction     focus.Direction
	StepSize      stack.StepSize
	StepsPerFrame int
	Frames        int
}

// RunConfig converts the settings into a worker configuration.
func (s StackingSettings) RunConfig() stack.Config {
	return stack.Config{
		Direction:     s.Direction,
		StepSize:      s.StepSize,
		StepsPerFrame: s.StepsPerFrame,
		Frames:        s.Frames,
	}
}

// RemoteSettings locates and paces the Imaging Edge Remote window.
type RemoteSettings struct {
	ExePath       string
	WindowTitle   string
	KeyDelay      time.Duration
	PollInterval  time.Duration
	AttachTimeout time.Duration
}

// TemplateSettings locates the reference screenshots.
type TemplateSettings struct {
	Definitions string
	BasePath    string
}

// RenderSettings configures the live focus-stack renders.
type RenderSettings struct {
	Enabled  bool
	Exe      string
	SavePath string
	Output   string
	Batch    int
	Threads  int
	Quality  int
	Interval int
}

// LoggingSettings selects verbosity.
type LoggingSettings struct {
	Level string
}

// DatabaseSettings locates the run-history database.
type DatabaseSettings struct {
	Path string
}

// Load reads a Settings.ini file. Missing keys fall back to defaults
// matching the Remote's observed timing.
func Load(path string) (*Settings, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	s := &Settings{}

	stacking := file.Section("Stacking")
	dir, err := focus.ParseDirection(stacking.Key("direction").MustString("near to far"))
	if err != nil {
		return nil, fmt.Errorf("invalid [Stacking] direction: %w", err)
	}
	step, err := stack.ParseStepSize(stacking.Key("stepSize").MustString("fine"))
	if err != nil {
		return nil, fmt.Errorf("invalid [Stacking] stepSize: %w", err)
	}
	s.Stacking = StackingSettings{
		Direction:     dir,
		StepSize:      step,
		StepsPerFrame: stacking.Key("stepsPerFrame").MustInt(1),
		Frames:        stacking.Key("frames").MustInt(10),
	}

	remote := file.Section("Remote")
	s.Remote = RemoteSettings{
		ExePath:       remote.Key("exePath").MustString(""),
		WindowTitle:   remote.Key("windowTitle").MustString("Remote"),
		KeyDelay:      time.Duration(remote.Key("keyDelayMs").MustInt(80)) * time.Millisecond,
		PollInterval:  time.Duration(remote.Key("pollIntervalMs").MustInt(100)) * time.Millisecond,
		AttachTimeout: time.Duration(remote.Key("attachTimeoutSec").MustInt(60)) * time.Second,
	}

	templates := file.Section("Templates")
	s.Templates = TemplateSettings{
		Definitions: templates.Key("definitions").MustString("templates/templates.yaml"),
		BasePath:    templates.Key("basePath").MustString("templates"),
	}

	render := file.Section("Render")
	s.Render = RenderSettings{
		Enabled:  render.Key("enabled").MustBool(false),
		Exe:      render.Key("exe").MustString("focus-stack"),
		SavePath: render.Key("savePath").MustString(""),
		Output:   render.Key("output").MustString(""),
		Batch:    render.Key("batchSize").MustInt(32),
		Threads:  render.Key("threads").MustInt(16),
		Quality:  render.Key("jpgQuality").MustInt(50),
		Interval: render.Key("interval").MustInt(5),
	}

	logging := file.Section("Logging")
	s.Logging = LoggingSettings{
		Level: logging.Key("level").MustString("info"),
	}

	database := file.Section("Database")
	s.Database = DatabaseSettings{
		Path: database.Key("path").MustString("focusstack.db"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if err := s.Stacking.RunConfig().Validate(); err != nil {
		return fmt.Errorf("invalid [Stacking] section: %w", err)
	}
	if s.Remote.WindowTitle == "" {
		return fmt.Errorf("[Remote] windowTitle must not be empty")
	}
	if s.Render.Enabled && s.Render.SavePath == "" {
		return fmt.Errorf("[Render] savePath is required when rendering is enabled")
	}
	return nil
}
