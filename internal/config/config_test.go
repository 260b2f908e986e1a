package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.Normalise()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Extraction.Limit)
	assert.Equal(t, "article", cfg.Extraction.ContainerSelector)
	assert.Equal(t, "h2.c_t", cfg.Extraction.TitleSelector)
	assert.Equal(t, "p.c_d", cfg.Extraction.ContentSelector)
	assert.Equal(t, 5*time.Second, cfg.Translation.RapidAPI.ConnectTimeout.Duration)
	assert.Equal(t, 10*time.Second, cfg.Translation.RapidAPI.ReadTimeout.Duration)
	assert.Equal(t, 30*time.Second, cfg.Translation.Free.Timeout.Duration)
	assert.Equal(t, "images", cfg.Images.Directory)
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	yamlDoc := `
extraction:
  limit: 3
  wait: 2
browser:
  mode: Static
  page_timeout: 1.5
translation:
  target: FR
  request_delay: 250ms
robots:
  overrides: [" ElPais.com ", "elpais.com", ""]
`
	cfg, err := LoadFromReader(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Extraction.Limit)
	assert.Equal(t, 2*time.Second, cfg.Extraction.Wait.Duration)
	assert.Equal(t, ModeStatic, cfg.Browser.Mode)
	assert.Equal(t, 1500*time.Millisecond, cfg.Browser.PageTimeout.Duration)
	assert.Equal(t, "fr", cfg.Translation.Target)
	assert.Equal(t, 250*time.Millisecond, cfg.Translation.RequestDelay.Duration)
	assert.Equal(t, []string{"elpais.com"}, cfg.Robots.Overrides)
	assert.Equal(t, "p.c_d", cfg.Extraction.ContentSelector)
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("extraction:\n  limmit: 3\n"))
	assert.Error(t, err)
}

func TestLoadFromReaderEmptyDocument(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default().Extraction, cfg.Extraction)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  limit: 7\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Extraction.Limit)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Site, cfg.Site)
}

func TestRemoteModeRequiresCredentials(t *testing.T) {
	cfg := Default()
	cfg.Browser.Mode = ModeRemote
	assert.ErrorIs(t, cfg.Validate(), ErrMissingGridCredentials)

	cfg.ApplyEnv(func(key string) (string, bool) {
		if key == EnvGridUsername {
			return "user", true
		}
		return "", false
	})
	assert.ErrorIs(t, cfg.Validate(), ErrMissingGridCredentials)

	cfg.ApplyEnv(func(key string) (string, bool) {
		if key == EnvGridAccessKey {
			return "secret", true
		}
		return "", false
	})
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "user", cfg.Browser.Remote.Username)
	assert.Equal(t, "secret", cfg.Browser.Remote.AccessKey)
}

func TestApplyEnvReadsProcessEnvironment(t *testing.T) {
	t.Setenv(EnvRapidAPIKey, "  key-123 ")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "key-123", cfg.Translation.RapidAPI.APIKey)
}

func TestLoadEnvFileFromEnvFileVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.env")
	require.NoError(t, os.WriteFile(path, []byte("BROWSERSTACK_USERNAME=from-file\nBROWSERSTACK_ACCESS_KEY=file-key\n"), 0o600))
	t.Setenv(EnvFile, path)
	t.Setenv(EnvGridUsername, "")
	t.Setenv(EnvGridAccessKey, "")
	os.Unsetenv(EnvGridUsername)
	os.Unsetenv(EnvGridAccessKey)

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Browser.Mode = ModeRemote
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "from-file", cfg.Browser.Remote.Username)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"limit":          func(c *Config) { c.Extraction.Limit = 0 },
		"container":      func(c *Config) { c.Extraction.ContainerSelector = " " },
		"mode":           func(c *Config) { c.Browser.Mode = "firefox" },
		"target":         func(c *Config) { c.Translation.Target = "" },
		"images":         func(c *Config) { c.Images.Directory = "" },
		"minlen":         func(c *Config) { c.Analysis.MinWordLength = 0 },
		"width":          func(c *Config) { c.Report.ContentWidth = -1 },
		"rate no window": func(c *Config) { c.Translation.RateLimit = RateLimitConfig{Requests: 5} },
		"rate negative":  func(c *Config) { c.Images.RateLimit.Requests = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExampleConfigLoads(t *testing.T) {
	t.Setenv(EnvFile, filepath.Join(t.TempDir(), "missing.env"))
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 120, cfg.Report.ContentWidth)
	assert.Equal(t, "chrome", cfg.Browser.Remote.Browser)
	assert.Equal(t, RateLimitConfig{Requests: 5, Window: DurationFrom(time.Second)}, cfg.Translation.RateLimit)
	assert.Zero(t, cfg.Images.RateLimit.Requests)
}
