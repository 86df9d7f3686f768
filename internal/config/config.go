package config

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultURLTemplate is where scanned page images are published.
const DefaultURLTemplate = "https://weefeen-user-data.eu-central-1.linodeobjects.com/staging/score/{id}/{page}.jpg"

// Config is the merged configuration of both commands.
type Config struct {
	Score     Score     `toml:"score" yaml:"score"`
	Window    Window    `toml:"window" yaml:"window"`
	Highlight Highlight `toml:"highlight" yaml:"highlight"`
	Playback  Playback  `toml:"playback" yaml:"playback"`
	Watch     Watch     `toml:"watch" yaml:"watch"`
	Fetch     Fetch     `toml:"fetch" yaml:"fetch"`
	Logging   Logging   `toml:"logging" yaml:"logging"`
}

// Score locates the four input files of a score.
type Score struct {
	PDF        string `toml:"pdf" yaml:"pdf"`
	Layout     string `toml:"layout" yaml:"layout"`
	Timestamps string `toml:"timestamps" yaml:"timestamps"`
	Audio      string `toml:"audio" yaml:"audio"`
}

// Conventional file names inside a score folder.
const (
	ScorePDFName        = "score.pdf"
	ScoreLayoutName     = "measure_boxes.json"
	ScoreTimestampsName = "timestamps.txt"
	ScoreAudioName      = "audio.mp3"
)

// ScoreInDir returns the conventional file set of a score folder.
func ScoreInDir(dir string) Score {
	return Score{
		PDF:        filepath.Join(dir, ScorePDFName),
		Layout:     filepath.Join(dir, ScoreLayoutName),
		Timestamps: filepath.Join(dir, ScoreTimestampsName),
		Audio:      filepath.Join(dir, ScoreAudioName),
	}
}

// Merge returns s with every non-empty path of o applied on top.
func (s Score) Merge(o Score) Score {
	if o.PDF != "" {
		s.PDF = o.PDF
	}
	if o.Layout != "" {
		s.Layout = o.Layout
	}
	if o.Timestamps != "" {
		s.Timestamps = o.Timestamps
	}
	if o.Audio != "" {
		s.Audio = o.Audio
	}
	return s
}

// Complete reports whether every path is set.
func (s Score) Complete() bool {
	return s.PDF != "" && s.Layout != "" && s.Timestamps != "" && s.Audio != ""
}

type Window struct {
	Title  string  `toml:"title" yaml:"title"`
	Width  float32 `toml:"width" yaml:"width"`
	Height float32 `toml:"height" yaml:"height"`
}

type Highlight struct {
	ActiveColor   string  `toml:"active_color" yaml:"active_color"`
	InactiveColor string  `toml:"inactive_color" yaml:"inactive_color"`
	StrokeWidth   float32 `toml:"stroke_width" yaml:"stroke_width"`
	Follow        bool    `toml:"follow" yaml:"follow"`
}

type Playback struct {
	PollInterval time.Duration `toml:"poll_interval" yaml:"poll_interval"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled" yaml:"enabled"`
	Debounce time.Duration `toml:"debounce" yaml:"debounce"`
}

type Fetch struct {
	URLTemplate string        `toml:"url_template" yaml:"url_template"`
	ScoreID     int           `toml:"score_id" yaml:"score_id"`
	Pages       int           `toml:"pages" yaml:"pages"`
	Output      string        `toml:"output" yaml:"output"`
	Workers     int           `toml:"workers" yaml:"workers"`
	Timeout     time.Duration `toml:"timeout" yaml:"timeout"`
}

type Logging struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// Defaults returns a configuration that runs without any file.
func Defaults() Config {
	return Config{
		Window: Window{
			Title:  "Score Viewer",
			Width:  1200,
			Height: 900,
		},
		Highlight: Highlight{
			ActiveColor:   "#ff0000",
			InactiveColor: "#00ff00",
			StrokeWidth:   2,
			Follow:        true,
		},
		Playback: Playback{
			PollInterval: 50 * time.Millisecond,
		},
		Watch: Watch{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
		Fetch: Fetch{
			URLTemplate: DefaultURLTemplate,
			ScoreID:     68,
			Pages:       11,
			Output:      "output.pdf",
			Workers:     4,
			Timeout:     30 * time.Second,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads a TOML (.toml) or YAML (.yaml, .yml) file on top of Defaults.
// Keys the configuration does not know are rejected.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("decode %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return cfg, nil
}

// EnvOverlay applies SCOREVIEW_* variables, LOG_LEVEL and DEBUG=1 from an
// environment list in os.Environ form.
func EnvOverlay(cfg Config, environ []string) (Config, error) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	strs := map[string]*string{
		"SCOREVIEW_PDF":          &cfg.Score.PDF,
		"SCOREVIEW_LAYOUT":       &cfg.Score.Layout,
		"SCOREVIEW_TIMESTAMPS":   &cfg.Score.Timestamps,
		"SCOREVIEW_AUDIO":        &cfg.Score.Audio,
		"SCOREVIEW_URL_TEMPLATE": &cfg.Fetch.URLTemplate,
		"SCOREVIEW_OUTPUT":       &cfg.Fetch.Output,
		"SCOREVIEW_LOG_FILE":     &cfg.Logging.File,
		"LOG_LEVEL":              &cfg.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := env[key]; ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := env["SCOREVIEW_FOLLOW"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("SCOREVIEW_FOLLOW: %w", err)
		}
		cfg.Highlight.Follow = b
	}
	if v, ok := env["SCOREVIEW_WORKERS"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SCOREVIEW_WORKERS: %w", err)
		}
		cfg.Fetch.Workers = n
	}
	if env["DEBUG"] == "1" && env["LOG_LEVEL"] == "" {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// Validate checks values both commands depend on.
func Validate(cfg Config) error {
	var errs []error
	if cfg.Window.Width <= 0 || cfg.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %gx%g must be positive", cfg.Window.Width, cfg.Window.Height))
	}
	if _, err := ParseColor(cfg.Highlight.ActiveColor); err != nil {
		errs = append(errs, fmt.Errorf("highlight.active_color: %w", err))
	}
	if _, err := ParseColor(cfg.Highlight.InactiveColor); err != nil {
		errs = append(errs, fmt.Errorf("highlight.inactive_color: %w", err))
	}
	if cfg.Playback.PollInterval <= 0 {
		errs = append(errs, errors.New("playback.poll_interval must be positive"))
	}
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch.debounce must not be negative"))
	}
	if cfg.Fetch.Workers < 1 {
		errs = append(errs, errors.New("fetch.workers must be at least 1"))
	}
	if cfg.Fetch.Pages < 0 {
		errs = append(errs, errors.New("fetch.pages must not be negative"))
	}
	if !strings.Contains(cfg.Fetch.URLTemplate, "{page}") {
		errs = append(errs, errors.New("fetch.url_template must contain {page}"))
	}
	return errors.Join(errs...)
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
