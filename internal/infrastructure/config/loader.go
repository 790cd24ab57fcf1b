package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/rag-go/assets"
	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/pkg/filesystem"
	"github.com/doeshing/rag-go/internal/ports"
)

const envPrefix = "RAG"

// FileLoader layers configuration: embedded defaults, then the YAML file at Path
// (~/.rag/config.yaml, overridable via RAG_CONFIG), then RAG_* environment variables.
// A missing file is not an error and nothing is ever written.
type FileLoader struct {
	fs           afero.Fs
	overridePath string
	envFile      string
}

// NewFileLoader builds a loader reading from the OS filesystem.
func NewFileLoader(path string) *FileLoader {
	return NewFileLoaderFs(afero.NewOsFs(), path)
}

// NewFileLoaderFs builds a loader reading from fsys.
func NewFileLoaderFs(fsys afero.Fs, path string) *FileLoader {
	return &FileLoader{fs: fsys, overridePath: path, envFile: ".env"}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return domain.Config{}, err
	}

	path := l.Path()
	data, err := afero.ReadFile(l.fs, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return domain.Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := l.loadEnvFile(); err != nil {
		return domain.Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return domain.Config{}, err
	}

	cfg.History.Path = expandPath(cfg.History.Path)
	return cfg, nil
}

// Path returns the config file location Load reads from.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv(envPrefix + "_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".rag", "config.yaml")
}

// Defaults returns the embedded default configuration.
func Defaults() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse embedded defaults: %w", err)
	}
	return cfg, nil
}

// loadEnvFile exports variables from .env that are not already set in the environment.
func (l *FileLoader) loadEnvFile() error {
	f, err := l.fs.Open(l.envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", l.envFile, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", l.envFile, err)
	}
	for key, value := range vars {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// envOverrides lists every honored variable by its full name, so envconfig never
// falls back to a bare unprefixed name. Nil means unset.
type envOverrides struct {
	CompletionURL       *string  `envconfig:"RAG_COMPLETION_URL"`
	CompletionModel     *string  `envconfig:"RAG_COMPLETION_MODEL"`
	Temperature         *float64 `envconfig:"RAG_COMPLETION_TEMPERATURE"`
	SystemPrompt        *string  `envconfig:"RAG_COMPLETION_SYSTEM_PROMPT"`
	ContextPreamble     *string  `envconfig:"RAG_COMPLETION_CONTEXT_PREAMBLE"`
	RetrievalEnabled    *bool    `envconfig:"RAG_RETRIEVAL_ENABLED"`
	RetrievalURL        *string  `envconfig:"RAG_RETRIEVAL_URL"`
	RetrievalCollection *string  `envconfig:"RAG_RETRIEVAL_COLLECTION"`
	OutputMode          *string  `envconfig:"RAG_OUTPUT_MODE"`
	StreamFraming       *string  `envconfig:"RAG_STREAM_FRAMING"`
	HistoryEnabled      *bool    `envconfig:"RAG_HISTORY_ENABLED"`
	HistoryPath         *string  `envconfig:"RAG_HISTORY_PATH"`
	LogLevel            *string  `envconfig:"RAG_LOG_LEVEL"`
	LogPretty           *bool    `envconfig:"RAG_LOG_PRETTY"`
	TimeoutSeconds      *int     `envconfig:"RAG_TIMEOUT"`
}

func applyEnv(cfg *domain.Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}

	setString(&cfg.Completion.URL, env.CompletionURL)
	setString(&cfg.Completion.Model, env.CompletionModel)
	if env.Temperature != nil {
		cfg.Completion.Temperature = *env.Temperature
	}
	setString(&cfg.Completion.SystemPrompt, env.SystemPrompt)
	setString(&cfg.Completion.ContextPreamble, env.ContextPreamble)
	setBool(&cfg.Retrieval.Enabled, env.RetrievalEnabled)
	setString(&cfg.Retrieval.URL, env.RetrievalURL)
	setString(&cfg.Retrieval.Collection, env.RetrievalCollection)
	if env.OutputMode != nil {
		cfg.Output.Mode = domain.OutputMode(strings.ToLower(*env.OutputMode))
	}
	if env.StreamFraming != nil {
		cfg.Stream.Framing = domain.Framing(strings.ToLower(*env.StreamFraming))
	}
	setBool(&cfg.History.Enabled, env.HistoryEnabled)
	setString(&cfg.History.Path, env.HistoryPath)
	setString(&cfg.Logging.Level, env.LogLevel)
	setBool(&cfg.Logging.Pretty, env.LogPretty)
	if env.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *env.TimeoutSeconds
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func expandPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
