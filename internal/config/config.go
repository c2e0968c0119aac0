package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/menta2k/moji-recognizer/internal/utils"
	"github.com/menta2k/moji-recognizer/pkg/normalizer"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

// Backend names
const (
	BackendTFServing = "tfserving"
	BackendOllama    = "ollama"
	BackendLlamaCpp  = "llamacpp"
)

// Config holds the application configuration
type Config struct {
	Canvas     CanvasConfig     `json:"canvas" yaml:"canvas"`
	Normalizer NormalizerConfig `json:"normalizer" yaml:"normalizer"`
	Ranker     RankerConfig     `json:"ranker" yaml:"ranker"`
	Session    SessionConfig    `json:"session" yaml:"session"`
	Output     OutputConfig     `json:"output" yaml:"output"`
	Families   []FamilyConfig   `json:"families" yaml:"families"`
}

// CanvasConfig holds the drawing surface settings
type CanvasConfig struct {
	Size       int `json:"size" yaml:"size"`
	BrushWidth int `json:"brush_width" yaml:"brush_width"`
}

// NormalizerConfig holds the canvas to tensor constants
type NormalizerConfig struct {
	PaddingRatio float64 `json:"padding_ratio" yaml:"padding_ratio"`
	Contrast     float64 `json:"contrast" yaml:"contrast"`
	Filter       string  `json:"filter" yaml:"filter"`
}

// RankerConfig holds result list settings
type RankerConfig struct {
	TopK int `json:"top_k" yaml:"top_k"`
}

// SessionConfig holds the initial interactive settings
type SessionConfig struct {
	Family        string `json:"family" yaml:"family"`
	Language      string `json:"language" yaml:"language"`
	AutoRecognize bool   `json:"auto_recognize" yaml:"auto_recognize"`
}

// OutputConfig holds configuration for debug image export
type OutputConfig struct {
	DebugDir     string `json:"debug_dir" yaml:"debug_dir"`
	DebugFormat  string `json:"debug_format" yaml:"debug_format"`
	Quality      int    `json:"quality" yaml:"quality"`
	InkThreshold int    `json:"ink_threshold" yaml:"ink_threshold"`
}

// FamilyConfig describes the classifier of one script family
type FamilyConfig struct {
	Name      string `json:"name" yaml:"name"`
	InputSize int    `json:"input_size" yaml:"input_size"`
	Labels    string `json:"labels" yaml:"labels"`
	Backend   string `json:"backend" yaml:"backend"`
	URL       string `json:"url" yaml:"url"`
	Model     string `json:"model" yaml:"model"`
	Timeout   string `json:"timeout" yaml:"timeout"`
	// Required makes startup fail when this family cannot be loaded
	Required bool `json:"required" yaml:"required"`
}

// TimeoutDuration parses Timeout; an empty value means the backend default
func (f FamilyConfig) TimeoutDuration() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("families.%s.timeout: %w", f.Name, err)
	}
	return d, nil
}

// Default returns a configuration with default values
func Default() *Config {
	n := normalizer.DefaultConfig()
	cfg := &Config{
		Canvas: CanvasConfig{
			Size:       320,
			BrushWidth: 7,
		},
		Normalizer: NormalizerConfig{
			PaddingRatio: n.PaddingRatio,
			Contrast:     n.Contrast,
			Filter:       n.Filter,
		},
		Ranker: RankerConfig{
			TopK: 5,
		},
		Session: SessionConfig{
			Family:   string(types.Hiragana),
			Language: string(types.English),
		},
		Output: OutputConfig{
			DebugFormat:  "png",
			Quality:      90,
			InkThreshold: 240,
		},
	}
	for _, f := range types.Families() {
		cfg.Families = append(cfg.Families, defaultFamily(f, BackendTFServing))
	}
	return cfg
}

// defaultFamily returns the settings of a family served by backend
func defaultFamily(f types.Family, backend string) FamilyConfig {
	fc := FamilyConfig{
		Name:      string(f),
		InputSize: 48,
		Labels:    filepath.Join("labels", string(f)+".yaml"),
		Backend:   backend,
		Model:     string(f),
	}
	if f == types.Kuzushiji {
		fc.InputSize = 28
	}
	switch backend {
	case BackendOllama:
		fc.URL = "http://localhost:11434"
		fc.Timeout = "2m"
	case BackendLlamaCpp:
		fc.URL = "http://localhost:8080"
		fc.Timeout = "5m"
	default:
		fc.URL = "http://localhost:8501"
		fc.Timeout = "30s"
	}
	return fc
}

// withDefaults fills the zero fields of a family loaded from a file
func (f FamilyConfig) withDefaults() FamilyConfig {
	family, err := types.ParseFamily(f.Name)
	if err != nil {
		return f
	}
	if f.Backend == "" {
		f.Backend = BackendTFServing
	}
	d := defaultFamily(family, f.Backend)
	if f.InputSize == 0 {
		f.InputSize = d.InputSize
	}
	if f.Labels == "" {
		f.Labels = d.Labels
	}
	if f.URL == "" {
		f.URL = d.URL
	}
	if f.Model == "" {
		f.Model = d.Model
	}
	if f.Timeout == "" {
		f.Timeout = d.Timeout
	}
	return f
}

// Family returns the configuration of one family
func (c *Config) Family(name types.Family) (FamilyConfig, bool) {
	for _, f := range c.Families {
		if types.Family(strings.ToLower(f.Name)) == name {
			return f, true
		}
	}
	return FamilyConfig{}, false
}

// NormalizerSettings converts the section to the normalizer's own type
func (c *Config) NormalizerSettings() normalizer.Config {
	return normalizer.Config{
		PaddingRatio: c.Normalizer.PaddingRatio,
		Contrast:     c.Normalizer.Contrast,
		Filter:       c.Normalizer.Filter,
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Fields absent
// from the file keep their default values. A families list replaces the
// default one; fields missing from a listed family take that family's
// defaults for its backend.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	defaults := config.Families
	// json reuses the backing array of a non-empty slice
	config.Families = nil
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Families == nil {
		config.Families = defaults
	}
	for i, f := range config.Families {
		config.Families[i] = f.withDefaults()
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(filename string) bool {
	ext := utils.GetFileExtension(filename)
	return ext == "yaml" || ext == "yml"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Canvas.Size < 32 {
		return fmt.Errorf("canvas.size must be at least 32")
	}

	if c.Canvas.BrushWidth < 4 || c.Canvas.BrushWidth > 12 {
		return fmt.Errorf("canvas.brush_width must be between 4 and 12")
	}

	if _, err := normalizer.NewWithConfig(c.NormalizerSettings()); err != nil {
		return fmt.Errorf("normalizer: %w", err)
	}

	if c.Ranker.TopK < 1 {
		return fmt.Errorf("ranker.top_k must be positive")
	}

	if _, err := types.ParseFamily(c.Session.Family); err != nil {
		return fmt.Errorf("session.family: %w", err)
	}

	if _, err := types.ParseLanguage(c.Session.Language); err != nil {
		return fmt.Errorf("session.language: %w", err)
	}

	switch strings.ToLower(c.Output.DebugFormat) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.debug_format must be png, jpg or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Output.InkThreshold < 0 || c.Output.InkThreshold > 255 {
		return fmt.Errorf("output.ink_threshold must be between 0 and 255")
	}

	if len(c.Families) == 0 {
		return fmt.Errorf("families cannot be empty")
	}

	seen := map[types.Family]bool{}
	for _, f := range c.Families {
		family, err := types.ParseFamily(f.Name)
		if err != nil {
			return fmt.Errorf("families: %w", err)
		}
		if seen[family] {
			return fmt.Errorf("families.%s is configured twice", family)
		}
		seen[family] = true

		if f.InputSize < 1 {
			return fmt.Errorf("families.%s.input_size must be positive", family)
		}
		if f.Labels == "" {
			return fmt.Errorf("families.%s.labels is required", family)
		}
		switch f.Backend {
		case BackendTFServing, BackendOllama, BackendLlamaCpp:
		default:
			return fmt.Errorf("families.%s.backend must be %s, %s or %s", family, BackendTFServing, BackendOllama, BackendLlamaCpp)
		}
		if f.Model == "" {
			return fmt.Errorf("families.%s.model is required", family)
		}
		if _, err := f.TimeoutDuration(); err != nil {
			return err
		}
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "moji-recognizer", "config.yaml")
}
