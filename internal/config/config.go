package config

import "fmt"

const (
	DefaultListenAddr = "127.0.0.1:8090"
	DefaultModel      = "base"
	DefaultLanguage   = "auto"
	DefaultLogLevel   = "info"
	DefaultDataDir    = "data"
)

// Config captures bootstrap configuration for the daemon. Values come from an
// optional YAML file overlaid with WHISPERBIND_* environment variables.
type Config struct {
	ListenAddr   string `yaml:"listen_addr" env:"WHISPERBIND_LISTEN_ADDR"`
	ModelVariant string `yaml:"model_variant" env:"WHISPERBIND_MODEL_VARIANT"`
	// ModelPath points at an explicit model file and bypasses variant
	// download.
	ModelPath string `yaml:"model_path" env:"WHISPERBIND_MODEL_PATH"`
	DataDir   string `yaml:"data_dir" env:"WHISPERBIND_DATA_DIR"`
	Language  string `yaml:"language" env:"WHISPERBIND_LANGUAGE"`
	Threads   int    `yaml:"threads" env:"WHISPERBIND_THREADS"`
	Translate bool   `yaml:"translate" env:"WHISPERBIND_TRANSLATE"`
	LogLevel  string `yaml:"log_level" env:"WHISPERBIND_LOG_LEVEL"`
	// UseStubEngine forces the deterministic stub backend regardless of the
	// build; useful for integration tests and CI.
	UseStubEngine bool `yaml:"use_stub_engine" env:"WHISPERBIND_USE_STUB_ENGINE"`
}

// Validate applies defaults and rejects out-of-range values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.ModelVariant == "" {
		c.ModelVariant = DefaultModel
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Threads < 0 {
		return fmt.Errorf("config: threads must be >= 0, got %d", c.Threads)
	}
	return nil
}
