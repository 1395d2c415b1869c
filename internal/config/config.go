// Package config loads and validates memer configuration.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/viper"
)

const (
	// AppName is used for config and data directory names.
	AppName = "memer"
	// EnvPrefix prefixes environment overrides, e.g. MEMER_TEXT_MIN_SIZE.
	EnvPrefix = "MEMER"

	// OverflowRender draws captions that do not fit at the minimum size anyway.
	OverflowRender = "render"
	// OverflowAbort fails the render when a caption does not fit.
	OverflowAbort = "abort"
)

// Config is the top-level memer configuration.
type Config struct {
	Text      TextConfig      `mapstructure:"text" yaml:"text"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Remote    RemoteConfig    `mapstructure:"remote" yaml:"remote"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`

	// Path is the file the configuration was read from, empty when only
	// defaults and environment were used.
	Path string `mapstructure:"-" yaml:"-"`
}

// TextConfig controls caption fitting and drawing.
type TextConfig struct {
	Font                   string  `mapstructure:"font" yaml:"font"`
	MinSize                int     `mapstructure:"min_size" yaml:"min_size"`
	MaxSize                int     `mapstructure:"max_size" yaml:"max_size"` // 0 means box height
	StrokeWidth            int     `mapstructure:"stroke_width" yaml:"stroke_width"`
	MarginFraction         float64 `mapstructure:"margin_fraction" yaml:"margin_fraction"`
	VerticalMarginFraction float64 `mapstructure:"vertical_margin_fraction" yaml:"vertical_margin_fraction"` // 0 means margin_fraction
	MaxHeightRatio         float64 `mapstructure:"max_text_height_ratio" yaml:"max_text_height_ratio"`
	LineSpacing            float64 `mapstructure:"line_spacing" yaml:"line_spacing"`
	Fill                   string  `mapstructure:"fill" yaml:"fill"`
	Outline                string  `mapstructure:"outline" yaml:"outline"`
	UniformSize            bool    `mapstructure:"uniform_size" yaml:"uniform_size"`
	Overflow               string  `mapstructure:"overflow" yaml:"overflow"`
}

// TemplatesConfig controls catalog discovery.
type TemplatesConfig struct {
	DataDir     string   `mapstructure:"data_dir" yaml:"data_dir"`
	SearchPaths []string `mapstructure:"search_paths" yaml:"search_paths"`
	Extensions  []string `mapstructure:"extensions" yaml:"extensions"`
}

// RemoteConfig controls template downloads.
type RemoteConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	VerifySSL bool          `mapstructure:"verify_ssl" yaml:"verify_ssl"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// OutputConfig controls where and how memes are written.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Name   string `mapstructure:"name" yaml:"name"`     // text/template over Stem, Name, Key, Timestamp
	Format string `mapstructure:"format" yaml:"format"` // empty follows the template
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Overridable for tests.
var (
	configDirFunc = defaultConfigDir
	dataDirFunc   = defaultDataDir
)

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(configDirFunc(), "config.yaml")
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	return dataDirFunc()
}

func defaultConfigDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(".", "."+AppName)
}

func defaultDataDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", AppName)
	}
	return filepath.Join(".", "."+AppName, "data")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("text.font", "default")
	v.SetDefault("text.min_size", 8)
	v.SetDefault("text.max_size", 0)
	v.SetDefault("text.stroke_width", 2)
	v.SetDefault("text.margin_fraction", 0.04)
	v.SetDefault("text.vertical_margin_fraction", 0.0)
	v.SetDefault("text.max_text_height_ratio", 0.25)
	v.SetDefault("text.line_spacing", 0.1)
	v.SetDefault("text.fill", "#ffffff")
	v.SetDefault("text.outline", "#000000")
	v.SetDefault("text.uniform_size", true)
	v.SetDefault("text.overflow", OverflowRender)

	v.SetDefault("templates.data_dir", DefaultDataDir())
	v.SetDefault("templates.search_paths", []string{})
	v.SetDefault("templates.extensions", []string{"png", "jpg", "jpeg", "gif", "webp", "bmp"})

	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.verify_ssl", true)
	v.SetDefault("remote.user_agent", AppName)

	v.SetDefault("output.dir", "")
	v.SetDefault("output.name", "{{.Stem}}_{{.Timestamp}}")
	v.SetDefault("output.format", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from path (or the default path when empty),
// applies environment overrides and validates the result. A missing file is
// not an error; defaults are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)

	used := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			if explicit {
				return nil, fmt.Errorf("config file %s: %w", path, fs.ErrNotExist)
			}
			used = ""
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Path = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field once so use sites can trust the values.
func (c *Config) Validate() error {
	t := c.Text
	if strings.TrimSpace(t.Font) == "" {
		return &ValidationError{Field: "text.font", Message: `must be a font path or "default"`}
	}
	if t.MinSize < 1 {
		return &ValidationError{Field: "text.min_size", Message: "must be at least 1"}
	}
	if t.MaxSize != 0 && t.MaxSize < t.MinSize {
		return &ValidationError{Field: "text.max_size", Message: "must be 0 or not less than min_size"}
	}
	if t.StrokeWidth < 0 {
		return &ValidationError{Field: "text.stroke_width", Message: "must not be negative"}
	}
	if t.MarginFraction < 0 || t.MarginFraction >= 0.5 {
		return &ValidationError{Field: "text.margin_fraction", Message: "must be in [0, 0.5)"}
	}
	if t.VerticalMarginFraction < 0 || t.VerticalMarginFraction >= 0.5 {
		return &ValidationError{Field: "text.vertical_margin_fraction", Message: "must be in [0, 0.5)"}
	}
	if t.MaxHeightRatio <= 0 || t.MaxHeightRatio > 1 {
		return &ValidationError{Field: "text.max_text_height_ratio", Message: "must be in (0, 1]"}
	}
	if t.LineSpacing < 0 {
		return &ValidationError{Field: "text.line_spacing", Message: "must not be negative"}
	}
	if _, err := ParseColor(t.Fill); err != nil {
		return &ValidationError{Field: "text.fill", Message: err.Error()}
	}
	if _, err := ParseColor(t.Outline); err != nil {
		return &ValidationError{Field: "text.outline", Message: err.Error()}
	}
	switch t.Overflow {
	case OverflowRender, OverflowAbort:
	default:
		return &ValidationError{Field: "text.overflow", Message: fmt.Sprintf("unknown policy %q (want render or abort)", t.Overflow)}
	}

	if strings.TrimSpace(c.Templates.DataDir) == "" {
		return &ValidationError{Field: "templates.data_dir", Message: "is required"}
	}
	if len(c.Templates.Extensions) == 0 {
		return &ValidationError{Field: "templates.extensions", Message: "must list at least one extension"}
	}

	if c.Remote.Timeout <= 0 {
		return &ValidationError{Field: "remote.timeout", Message: "must be positive"}
	}

	if strings.TrimSpace(c.Output.Name) == "" {
		return &ValidationError{Field: "output.name", Message: "is required"}
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff":
	default:
		return &ValidationError{Field: "output.format", Message: fmt.Sprintf("unsupported format %q", c.Output.Format)}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return &ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// TemplatesDir is where pulled templates are stored.
func (c *Config) TemplatesDir() string {
	return filepath.Join(c.Templates.DataDir, "templates")
}

// DatabasePath is the metadata store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Templates.DataDir, "memer.db")
}

// VerticalMargin returns the effective vertical margin fraction.
func (t TextConfig) VerticalMargin() float64 {
	if t.VerticalMarginFraction > 0 {
		return t.VerticalMarginFraction
	}
	return t.MarginFraction
}

var namedColors = map[string]string{
	"white":  "#ffffff",
	"black":  "#000000",
	"red":    "#ff0000",
	"green":  "#00ff00",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
}

// ParseColor accepts #rgb, #rrggbb or a small set of color names.
func ParseColor(value string) (color.NRGBA, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if hex, ok := namedColors[value]; ok {
		value = hex
	}
	if len(value) == 4 && strings.HasPrefix(value, "#") {
		value = "#" + strings.Repeat(value[1:2], 2) + strings.Repeat(value[2:3], 2) + strings.Repeat(value[3:4], 2)
	}
	c, err := colorful.Hex(value)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", value)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}
