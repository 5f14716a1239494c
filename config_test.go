package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSettings(t *testing.T) {
	s, err := embeddedSettings()
	require.NoError(t, err)

	assert.Equal(t, "data/calc.csv", s.Paths.CSV)
	assert.Equal(t, 5, s.Batch.DefaultRows)
	assert.Equal(t, 8, s.Batch.DateColumn)
	require.NotNil(t, s.Matching.SimilarityThreshold)
	require.NotNil(t, s.Matching.SubstringBonus)
	assert.InDelta(t, 0.65, *s.Matching.SimilarityThreshold, 1e-9)
	assert.InDelta(t, 0.1, *s.Matching.SubstringBonus, 1e-9)
	assert.Equal(t, 20000, s.Context.MaxChars)
	assert.False(t, s.Context.HTMLToMarkdown)
	assert.Equal(t, ProviderOpenAI, s.Generator.Provider)
	assert.True(t, s.Git.Enabled)
}

func TestLoadSettingsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  csv: other.csv\ngenerator:\n  provider: Gemini\n"), 0644))

	s, err := loadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "other.csv", s.Paths.CSV)
	assert.Equal(t, "generated/prompts", s.Paths.Prompts, "unset keys keep defaults")
	assert.Equal(t, "Gemini", s.Generator.Provider)
}

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	s, err := loadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data/calc.csv", s.Paths.CSV)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  provider: ' Anthropic '\n  model: claude\n"), 0644))

	csv := "jobs.csv"
	model := "override-model"
	s, err := LoadConfig(&ConfigOverrides{
		SettingsPath: &path,
		CSVPath:      &csv,
		Model:        &model,
		SkipGit:      true,
		Debug:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, "jobs.csv", s.Paths.CSV)
	assert.Equal(t, ProviderAnthropic, s.Generator.Provider)
	assert.Equal(t, "override-model", s.Generator.Model)
	assert.False(t, s.Git.Enabled)
	assert.Equal(t, "DEBUG", s.Logging.Level)
}

func TestLoadConfigExplicitPathMustExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := LoadConfig(&ConfigOverrides{SettingsPath: &path})
	assert.Error(t, err)
}

func TestLoadConfigRejectsNegativeDateColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  date_column: -1\n"), 0644))

	_, err := LoadConfig(&ConfigOverrides{SettingsPath: &path})
	assert.Error(t, err)
}

func TestSkipGitPushEnv(t *testing.T) {
	t.Setenv("SKIP_GIT_PUSH", "1")

	s, err := embeddedSettings()
	require.NoError(t, err)
	s.applyOverrides(&ConfigOverrides{})
	assert.False(t, s.Git.Enabled)
}

func TestEnsureConfigExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".factory-runner")
	require.NoError(t, ensureConfigExists(dir))

	data, err := os.ReadFile(filepath.Join(dir, settingsFileName))
	require.NoError(t, err)
	assert.Equal(t, defaultSettings, string(data))

	// An edited file is left alone.
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFileName), []byte("paths: {}\n"), 0644))
	require.NoError(t, ensureConfigExists(dir))
	data, err = os.ReadFile(filepath.Join(dir, settingsFileName))
	require.NoError(t, err)
	assert.Equal(t, "paths: {}\n", string(data))
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("GEMINI_API_KEY", "")

	assert.Equal(t, "explicit", ResolveAPIKey(ProviderOpenAI, "explicit"))
	assert.Equal(t, "from-env", ResolveAPIKey(ProviderOpenAI, ""))
	assert.Equal(t, "", ResolveAPIKey(ProviderGemini, ""))
	assert.Equal(t, "", ResolveAPIKey("unknown", ""))
}

func TestProviderOverrideResetsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  provider: openai\n  model: gpt-5-mini\n"), 0644))

	provider := "gemini"
	s, err := LoadConfig(&ConfigOverrides{SettingsPath: &path, Provider: &provider})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, s.Generator.Provider)
	assert.Equal(t, "gemini-2.5-flash", s.Generator.Model)
}

func TestMatchingZeroBonusIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matching:\n  substring_bonus: 0\n"), 0644))

	s, err := LoadConfig(&ConfigOverrides{SettingsPath: &path})
	require.NoError(t, err)
	require.NotNil(t, s.Matching.SubstringBonus)
	assert.Zero(t, *s.Matching.SubstringBonus)
	assert.InDelta(t, 0.65, *s.Matching.SimilarityThreshold, 1e-9, "unset key keeps the default")
}

func TestMatchingRejectsNegativeValues(t *testing.T) {
	for _, body := range []string{
		"matching:\n  substring_bonus: -0.1\n",
		"matching:\n  similarity_threshold: -1\n",
	} {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		_, err := LoadConfig(&ConfigOverrides{SettingsPath: &path})
		assert.Error(t, err, body)
	}
}
