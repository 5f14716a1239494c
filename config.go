package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir = ".factory-runner"
	settingsFileName = "settings.yaml"
)

//go:embed config/settings.yaml
var defaultSettings string

// PathSettings locates the files and folders a batch reads and writes
type PathSettings struct {
	CSV      string `yaml:"csv"`
	Prompts  string `yaml:"prompts"`
	Output   string `yaml:"output"`
	Input    string `yaml:"input"`
	BuildLog string `yaml:"build_log"`
}

// BatchSettings controls the row window and date stamping
type BatchSettings struct {
	DefaultRows int `yaml:"default_rows"`
	DateColumn  int `yaml:"date_column"`
}

// MatchingSettings tunes the similarity fallback of the prompt matcher.
// Nil fields use the built-in defaults; 0 is a real value.
type MatchingSettings struct {
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	SubstringBonus      *float64 `yaml:"substring_bonus"`
}

// ContextSettings controls which context files are inlined and how
type ContextSettings struct {
	MaxChars       int      `yaml:"max_chars"`
	HTMLToMarkdown bool     `yaml:"html_to_markdown"`
	Extensions     []string `yaml:"extensions"`
}

// GeneratorSettings selects the text generation backend
type GeneratorSettings struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// GitSettings controls publishing after each batch
type GitSettings struct {
	Enabled bool   `yaml:"enabled"`
	Remote  string `yaml:"remote"`
	Branch  string `yaml:"branch"`
	Fatal   bool   `yaml:"fatal"`
}

// LogSettings controls log destinations
type LogSettings struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	Paths     PathSettings      `yaml:"paths"`
	Batch     BatchSettings     `yaml:"batch"`
	Matching  MatchingSettings  `yaml:"matching"`
	Context   ContextSettings   `yaml:"context"`
	Generator GeneratorSettings `yaml:"generator"`
	Git       GitSettings       `yaml:"git"`
	Logging   LogSettings       `yaml:"logging"`
}

// ConfigOverrides holds command-line values that take precedence over
// settings.yaml. Nil fields leave the setting untouched.
type ConfigOverrides struct {
	SettingsPath *string
	CSVPath      *string
	PromptsDir   *string
	OutputDir    *string
	InputDir     *string
	BuildLogPath *string
	Provider     *string
	Model        *string
	SkipGit      bool
	Debug        bool
}

// LoadConfig resolves the effective settings: embedded defaults, then the
// settings file, then overrides.
func LoadConfig(overrides *ConfigOverrides) (*Settings, error) {
	var settings *Settings
	var err error

	if overrides != nil && overrides.SettingsPath != nil {
		// Explicit settings file must exist
		settings, err = loadSettingsRequired(*overrides.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("loading settings %s: %w", *overrides.SettingsPath, err)
		}
	} else {
		if err := ensureConfigExists(defaultConfigDir); err != nil {
			return nil, fmt.Errorf("ensuring config files exist: %w", err)
		}
		settings, err = loadSettings(filepath.Join(defaultConfigDir, settingsFileName))
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}

	settings.applyOverrides(overrides)
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// embeddedSettings parses the defaults compiled into the binary.
func embeddedSettings() (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}
	return &settings, nil
}

// loadSettings loads settings from YAML file with fallback to defaults
func loadSettings(settingsPath string) (*Settings, error) {
	settings, err := embeddedSettings()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(settingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, err
	}

	// Unmarshal over the defaults so partial files keep the rest
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	return settings, nil
}

// loadSettingsRequired loads settings from YAML file, failing if file doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}

	settings, err := embeddedSettings()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	return settings, nil
}

// ensureConfigExists creates the config directory and writes settings.yaml if needed
func ensureConfigExists(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := filepath.Join(configDir, settingsFileName)
	if _, err := os.Stat(settingsFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", settingsFileName, err)
		}
	}
	return nil
}

func (s *Settings) applyOverrides(o *ConfigOverrides) {
	if o == nil {
		return
	}
	setString := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}
	setString(&s.Paths.CSV, o.CSVPath)
	setString(&s.Paths.Prompts, o.PromptsDir)
	setString(&s.Paths.Output, o.OutputDir)
	setString(&s.Paths.Input, o.InputDir)
	setString(&s.Paths.BuildLog, o.BuildLogPath)
	if o.Provider != nil && *o.Provider != "" && *o.Provider != s.Generator.Provider {
		// The configured model belongs to the old provider
		s.Generator.Provider = *o.Provider
		s.Generator.Model = ""
	}
	setString(&s.Generator.Model, o.Model)

	if o.SkipGit || os.Getenv("SKIP_GIT_PUSH") == "1" {
		s.Git.Enabled = false
	}
	if o.Debug {
		s.Logging.Level = "DEBUG"
	}
}

func (s *Settings) validate() error {
	if s.Batch.DefaultRows < 1 {
		slog.Warn("batch.default_rows below 1, using 5", "value", s.Batch.DefaultRows)
		s.Batch.DefaultRows = 5
	}
	if s.Batch.DateColumn < 0 {
		return fmt.Errorf("batch.date_column must be >= 0, got %d", s.Batch.DateColumn)
	}
	if t := s.Matching.SimilarityThreshold; t != nil && *t < 0 {
		return fmt.Errorf("matching.similarity_threshold must be >= 0, got %g", *t)
	}
	if b := s.Matching.SubstringBonus; b != nil && *b < 0 {
		return fmt.Errorf("matching.substring_bonus must be >= 0, got %g", *b)
	}
	if s.Context.MaxChars <= 0 {
		s.Context.MaxChars = defaultContextMaxChars
	}
	if len(s.Context.Extensions) == 0 {
		s.Context.Extensions = defaultContextExtensions
	}
	s.Generator.Provider = strings.ToLower(strings.TrimSpace(s.Generator.Provider))
	if s.Generator.Model == "" {
		s.Generator.Model = defaultModels[s.Generator.Provider]
	}
	if s.Git.Remote == "" {
		s.Git.Remote = "origin"
	}
	if s.Git.Branch == "" {
		s.Git.Branch = "main"
	}
	return nil
}

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-5-mini",
	ProviderAnthropic: "claude-sonnet-4-5",
	ProviderGemini:    "gemini-2.5-flash",
}

// apiKeyEnv maps a provider to the environment variable holding its key.
var apiKeyEnv = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
}

// ResolveAPIKey prefers an explicit key, then the provider's environment variable.
func ResolveAPIKey(provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env, ok := apiKeyEnv[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}
