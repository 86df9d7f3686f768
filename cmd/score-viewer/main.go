package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"score-viewer/internal/config"
	"score-viewer/internal/controllers"
	"score-viewer/internal/logger"
	"score-viewer/internal/models"
	"score-viewer/internal/playback"
	"score-viewer/internal/services"
	"score-viewer/internal/shutdown"
	"score-viewer/internal/views"
	"score-viewer/internal/views/components"
)

const (
	AppName    = "Score Viewer"
	AppID      = "com.scoreviewer.viewer"
	AppVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "TOML or YAML configuration file")
	pdf := flag.String("pdf", "", "score PDF")
	layout := flag.String("layout", "", "measure box JSON")
	timestamps := flag.String("timestamps", "", "measure timestamp table")
	audio := flag.String("audio", "", "MP3 recording")
	dir := flag.String("dir", "", "score folder holding score.pdf, measure_boxes.json, timestamps.txt and audio.mp3")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}
	if *dir != "" {
		cfg.Score = cfg.Score.Merge(config.ScoreInDir(*dir))
	}
	cfg.Score = cfg.Score.Merge(config.Score{PDF: *pdf, Layout: *layout, Timestamps: *timestamps, Audio: *audio})

	base, closeLog, err := logger.Open(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(2)
	}

	err = run(cfg, base)
	if err != nil {
		base.Error("viewer failed", err, nil)
	}
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg, err = config.EnvOverlay(cfg, os.Environ())
	if err != nil {
		return cfg, err
	}
	return cfg, config.Validate(cfg)
}

func run(cfg config.Config, base *logger.ZerologAdapter) error {
	log := base.With("viewer")
	log.Info("application starting", map[string]interface{}{
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"log_level":  cfg.Logging.Level,
	})

	opts, err := controllers.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	boxStyle := components.BoxStyle{
		Active:      opts.ExportStyle.Active,
		Inactive:    opts.ExportStyle.Inactive,
		StrokeWidth: cfg.Highlight.StrokeWidth,
	}

	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow(cfg.Window.Title)
	window.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	window.CenterOnScreen()
	window.SetMaster()

	scoreService := services.NewScoreService(models.NewScoreRepository(), services.OpenFitz, base.With("score"))
	playerLog := base.With("playback")
	openPlayer := func(path string) (playback.Player, error) {
		return playback.OpenMP3(path, playerLog)
	}

	controller := controllers.NewMainController(scoreService, openPlayer, opts, base.With("controller"))
	view := views.NewMainView(window, boxStyle)
	controller.SetMainView(view)

	manager := shutdown.NewManager(base.With("shutdown"))
	manager.Register(controller)
	manager.Listen(func() { fyne.Do(fyneApp.Quit) })

	window.SetOnClosed(func() {
		log.Info("window closed", nil)
	})

	if cfg.Score.Complete() {
		go func() {
			if err := controller.OpenScore(manager.Context(), cfg.Score); err != nil {
				log.Error("open score failed", err, map[string]interface{}{"pdf": cfg.Score.PDF})
				view.ShowError(err)
			}
		}()
	} else {
		view.UpdateStatus("Open a score folder to begin")
	}

	window.ShowAndRun()
	manager.Shutdown()
	return nil
}
