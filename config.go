package metaport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// DefaultMaxDepth bounds recursion when Config.MaxDepth is unset.
const DefaultMaxDepth = 256

var validate = validator.New()

// Config controls an Engine.
type Config struct {
	// MaxDepth bounds nested imports, counting recursive calls and composite
	// layers. Deeper inputs fail with ErrDepthExceeded.
	MaxDepth int `json:"maxDepth" yaml:"maxDepth" toml:"maxDepth" validate:"gte=1"`

	// StrictCallingConvention makes runtime method imports fail with
	// ErrNotImplemented when the host cannot report a calling convention,
	// instead of assuming the default one.
	StrictCallingConvention bool `json:"strictCallingConvention" yaml:"strictCallingConvention" toml:"strictCallingConvention"`

	// LogLevel selects a text logger on stderr when no logger is set.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty" toml:"logLevel" validate:"omitempty,oneof=trace debug info warn error"`
}

// DefaultConfig returns the configuration used by NewEngine.
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth}
}

// Validate checks field constraints. Violations are reported as an
// invalid_argument *Error with one detail per field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if e := AsError(err); e != nil {
			return e
		}
		return err
	}
	return nil
}

// LoadConfig reads a JSON, YAML or TOML file, chosen by extension, on top of
// DefaultConfig and validates the result. Files with any other extension are
// accepted only when their content sniffs as JSON.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		mt := mimetype.Detect(data)
		if !mt.Is("application/json") {
			return Config{}, Errorf(CodeInvalidArgument, "unsupported config format %q", ext).
				WithDetail("path", path).
				WithDetail("contentType", mt.String())
		}
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
