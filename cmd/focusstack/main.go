package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/M-Enderle/FocusStack/internal/config"
	"github.com/M-Enderle/FocusStack/internal/cv"
	"github.com/M-Enderle/FocusStack/internal/database"
	"github.com/M-Enderle/FocusStack/internal/events"
	"github.com/M-Enderle/FocusStack/internal/logging"
	"github.com/M-Enderle/FocusStack/internal/remote"
	"github.com/M-Enderle/FocusStack/internal/render"
	"github.com/M-Enderle/FocusStack/internal/stack"
	"github.com/M-Enderle/FocusStack/pkg/templates"
)

func main() {
	settingsPath := flag.String("settings", "Settings.ini", "path to the settings file")
	frames := flag.Int("frames", 0, "override the configured frame count")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	if err := run(*settingsPath, *frames, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "focusstack: %v\n", err)
		os.Exit(1)
	}
}

func run(settingsPath string, framesOverride int, levelOverride string) error {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return err
	}
	if framesOverride > 0 {
		settings.Stacking.Frames = framesOverride
	}
	if levelOverride != "" {
		settings.Logging.Level = levelOverride
	}

	level := logging.ParseLevel(settings.Logging.Level)
	log := logging.New("main").SetMinLevel(level)

	bus := events.NewBus(64)
	defer bus.Stop()

	// Run history
	db, err := database.Open(settings.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return err
	}
	recorder := database.NewRecorder(db, bus, logging.New("database").SetMinLevel(level))
	recorder.Attach()
	defer recorder.Detach()

	// Reference screenshots
	registry := templates.NewRegistry(settings.Templates.BasePath)
	if err := registry.LoadFromFile(settings.Templates.Definitions); err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	log.Infof("loaded %d reference templates", len(registry.Names()))

	// Attach to Imaging Edge Remote
	controller := remote.NewController(remote.Options{
		WindowTitle:   settings.Remote.WindowTitle,
		ExePath:       settings.Remote.ExePath,
		AttachTimeout: settings.Remote.AttachTimeout,
	}, logging.New("remote").SetMinLevel(level))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := controller.Attach(ctx); err != nil {
		return err
	}
	if err := controller.Focus(); err != nil {
		log.Warnf("could not foreground the remote window: %v", err)
	}

	capturer, err := controller.Capturer()
	if err != nil {
		return err
	}
	vision := cv.NewService(capturer, registry)

	// Live rendering
	var manager *render.Manager
	if settings.Render.Enabled {
		job := render.NewJob(render.Options{
			Exe:       settings.Render.Exe,
			SourceDir: settings.Render.SavePath,
			OutputDir: settings.Render.Output,
			Since:     time.Now(),
			BatchSize: settings.Render.Batch,
			Threads:   settings.Render.Threads,
			Quality:   settings.Render.Quality,
		}, bus, logging.New("render").SetMinLevel(level))
		manager = render.NewManager(job, bus, logging.New("render").SetMinLevel(level), settings.Render.Interval)
		manager.Attach()
		defer manager.Detach()
	}

	// The capture worker
	seq := stack.NewSequencer(controller, vision, logging.New("stack").SetMinLevel(level)).
		WithKeyDelay(settings.Remote.KeyDelay).
		WithPollInterval(settings.Remote.PollInterval)
	worker := stack.NewWorker(seq, bus, logging.New("worker").SetMinLevel(level))

	if err := worker.Start(settings.Stacking.RunConfig()); err != nil {
		return err
	}

	// First interrupt stops the run cooperatively; the worker reverts
	// focus before exiting.
	go func() {
		<-ctx.Done()
		log.Infof("interrupt received, stopping the run")
		worker.Stop()
	}()

	err = worker.Wait()

	// The completion event rides the bus queue; deliver it while the
	// manager and recorder are still attached so it can trigger the
	// final render, then wait that render out and flush its own events.
	bus.Drain()
	if manager != nil {
		manager.WaitIdle()
		bus.Drain()
	}
	if err != nil {
		return err
	}

	log.Infof("run finished: %s", worker.State())
	return nil
}
