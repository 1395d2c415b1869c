package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when the file exists and force is off.
var ErrConfigExists = errors.New("config file already exists")

const defaultFileHeader = `# memer Configuration File
#
# Every value below is the built-in default. Environment variables override
# file values, e.g. MEMER_TEXT_MIN_SIZE=12 or MEMER_LOGGING_LEVEL=debug.
#
# text.font            path to a TTF/OTF file, or "default" for the bundled bold face
# text.max_size        0 means "height of the caption box"
# text.overflow        render: draw at min_size even if it overflows
#                      abort:  fail with a layout overflow error
`

// DefaultFileContents renders the commented default configuration.
func DefaultFileContents() ([]byte, error) {
	body, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(defaultFileHeader)
	buf.WriteString("\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string, force bool) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrConfigExists)
		}
	}

	data, err := DefaultFileContents()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
