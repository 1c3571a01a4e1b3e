package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, DefaultModel, config.API.Model)
	assert.Equal(t, "GEMINI_API_KEY", config.API.APIKeyEnvVar)
	assert.Equal(t, "chat_history.json", config.History.Path)
	assert.False(t, config.Archive.Enabled)
	assert.NotEmpty(t, config.Archive.Path)
	require.NoError(t, NewValidator().Validate(config))
}

func TestConfigValidation(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "prefixed model name",
			mutate:  func(c *Config) { c.API.Model = "models/gemini-2.5-pro" },
			wantErr: false,
		},
		{
			name:    "model name with spaces",
			mutate:  func(c *Config) { c.API.Model = "gemini pro" },
			wantErr: true,
		},
		{
			name:    "invalid base url",
			mutate:  func(c *Config) { c.API.BaseURL = "not a url" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.API.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "empty history path",
			mutate:  func(c *Config) { c.History.Path = "" },
			wantErr: true,
		},
		{
			name:    "address without port",
			mutate:  func(c *Config) { c.Server.Addr = "localhost" },
			wantErr: true,
		},
		{
			name:    "address with empty host",
			mutate:  func(c *Config) { c.Server.Addr = ":8080" },
			wantErr: false,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "yaml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := validator.Validate(c)
			if tt.wantErr {
				var verr ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigLoaderSaveAndLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	configPath := filepath.Join("/home/test/.config/gemchat", "config.json")

	loader := NewLoader(ConfigPrecedence{UserConfig: configPath}, WithFs(fs), WithLookupEnv(envMap(nil)))

	testConfig := DefaultConfig()
	testConfig.API.Model = "gemini-2.5-pro"
	testConfig.API.Timeout = 10 * time.Second
	require.NoError(t, loader.SaveFile(testConfig, configPath))

	loaded, err := loader.loadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", loaded.API.Model)
	assert.Equal(t, 10*time.Second, loaded.API.Timeout)
}

func TestConfigMerging(t *testing.T) {
	loader := &Loader{}

	base := DefaultConfig()
	override := &Config{
		API: APIConfig{
			Model:   "gemini-2.5-pro",
			BaseURL: "https://proxy.example.com",
		},
		Archive: ArchiveConfig{Enabled: true},
	}

	merged := loader.mergeConfigs(base, override)

	assert.Equal(t, "gemini-2.5-pro", merged.API.Model)
	assert.Equal(t, "https://proxy.example.com", merged.API.BaseURL)
	assert.True(t, merged.Archive.Enabled)

	// preserved
	assert.Equal(t, base.History.Path, merged.History.Path)
	assert.Equal(t, base.Server.Addr, merged.Server.Addr)
	assert.Equal(t, base.API.APIKeyEnvVar, merged.API.APIKeyEnvVar)
}

func TestLoadPrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/gemchat/config.json",
		[]byte(`{"api":{"model":"system-model"},"server":{"addr":"0.0.0.0:9000"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/home/u/config.json",
		[]byte(`{"api":{"model":"user-model"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, ".gemchat/config.json",
		[]byte(`{"history":{"path":"project.json"}}`), 0644))

	loader := NewLoader(ConfigPrecedence{
		SystemConfig:  "/etc/gemchat/config.json",
		UserConfig:    "/home/u/config.json",
		ProjectConfig: ".gemchat/config.json",
		LocalConfig:   ".gemchat/config.local.json",
	}, WithFs(fs), WithLookupEnv(envMap(nil)))

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "user-model", cfg.API.Model)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "project.json", cfg.History.Path)
	assert.Equal(t, []string{"/etc/gemchat/config.json", "/home/u/config.json", ".gemchat/config.json"}, loader.LoadedFiles())
}

func TestLoadInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/u/config.json", []byte(`{not json`), 0644))

	loader := NewLoader(ConfigPrecedence{UserConfig: "/home/u/config.json"}, WithFs(fs), WithLookupEnv(envMap(nil)))
	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user config")
}

func TestEnvironmentOverrides(t *testing.T) {
	loader := NewLoader(ConfigPrecedence{
		EnvironmentPrefix: "TEST",
	}, WithLookupEnv(envMap(map[string]string{
		"TEST_API_KEY":   "test-key-123",
		"TEST_MODEL":     "test-model",
		"TEST_ARCHIVE":   "true",
		"TEST_ADDR":      ":9999",
		"TEST_LOG_LEVEL": "DEBUG",
	})))

	config := DefaultConfig()
	loader.applyEnvironmentOverrides(config)

	assert.Equal(t, "test-key-123", config.API.APIKey)
	assert.Equal(t, "test-model", config.API.Model)
	assert.True(t, config.Archive.Enabled)
	assert.Equal(t, ":9999", config.Server.Addr)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestAPIKeyResolution(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		dotenv string
		file   string
		want   string
	}{
		{
			name: "from GEMINI_API_KEY",
			env:  map[string]string{"GEMINI_API_KEY": "env-key"},
			want: "env-key",
		},
		{
			name:   "from .env file",
			dotenv: "GEMINI_API_KEY=dotenv-key\n",
			want:   "dotenv-key",
		},
		{
			name:   "environment wins over .env",
			env:    map[string]string{"GEMINI_API_KEY": "env-key"},
			dotenv: "GEMINI_API_KEY=dotenv-key\n",
			want:   "env-key",
		},
		{
			name: "config file key wins over GEMINI_API_KEY",
			env:  map[string]string{"GEMINI_API_KEY": "env-key"},
			file: `{"api":{"api_key":"file-key"}}`,
			want: "file-key",
		},
		{
			name: "prefixed variable wins over config file",
			env:  map[string]string{"GEMCHAT_API_KEY": "prefixed-key"},
			file: `{"api":{"api_key":"file-key"}}`,
			want: "prefixed-key",
		},
		{
			name: "custom key variable",
			env:  map[string]string{"MY_KEY": "custom"},
			file: `{"api":{"api_key_env_var":"MY_KEY"}}`,
			want: "custom",
		},
		{
			name: "missing everywhere",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.dotenv != "" {
				require.NoError(t, afero.WriteFile(fs, ".env", []byte(tt.dotenv), 0600))
			}
			if tt.file != "" {
				require.NoError(t, afero.WriteFile(fs, "/cfg.json", []byte(tt.file), 0600))
			}

			loader := NewLoader(ConfigPrecedence{
				UserConfig:        "/cfg.json",
				DotEnv:            ".env",
				EnvironmentPrefix: "GEMCHAT",
			}, WithFs(fs), WithLookupEnv(envMap(tt.env)))

			cfg, err := loader.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.API.APIKey)
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := GetConfigPaths()
	assert.Equal(t, "GEMCHAT", paths.EnvironmentPrefix)
	assert.Equal(t, ".env", paths.DotEnv)
	assert.Equal(t, filepath.Join(".gemchat", "config.json"), paths.ProjectConfig)
	assert.Contains(t, paths.UserConfig, "gemchat")
}
