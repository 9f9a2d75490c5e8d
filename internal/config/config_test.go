package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		if v, ok := os.LookupEnv(name); ok {
			require.NoError(t, os.Unsetenv(name))
			t.Cleanup(func() { _ = os.Setenv(name, v) })
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "launch", cfg.Adapter.Request)
	assert.Equal(t, "Information", cfg.Panel.Label)
	assert.Equal(t, 2, cfg.Panel.MinimumSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.HasAdapter())
	assert.NotEmpty(t, cfg.Settings.Path)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Equal(t, Default().Panel, cfg.Panel)
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "infopanel.toml", `
[adapter]
id = "mock"
command = "mock-debug"
args = ["--stdio"]
request = "attach"
request_timeout = "3s"

[adapter.arguments]
program = "a.out"
stopOnEntry = true

[panel]
minimum_size = 4

[logging]
level = "debug"
file = "/tmp/infopanel.log"

[settings]
path = "/tmp/settings.json"

[[breakpoints]]
path = "a.c"
line = 10

[[breakpoints]]
path = "b.c"
line = 3
condition = "i > 2"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Adapter.ID)
	assert.Equal(t, "mock-debug", cfg.Adapter.Command)
	assert.Equal(t, []string{"--stdio"}, cfg.Adapter.Args)
	assert.Equal(t, "attach", cfg.Adapter.Request)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "a.out", cfg.Adapter.Arguments["program"])
	assert.Equal(t, true, cfg.Adapter.Arguments["stopOnEntry"])
	assert.Equal(t, "Information", cfg.Panel.Label, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Panel.MinimumSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/settings.json", cfg.Settings.Path)
	require.Len(t, cfg.Breakpoints, 2)
	assert.Equal(t, BreakpointConfig{Path: "b.c", Line: 3, Condition: "i > 2"}, cfg.Breakpoints[1])
	assert.True(t, cfg.HasAdapter())
}

func TestLoadUnknownField(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "infopanel.toml", "[panel]\nlabell = \"x\"\n")

	_, err := Load(path)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, perr.Message, "labell")
}

func TestLoadSyntaxError(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "infopanel.toml", "[panel]\nlabel = \n")

	_, err := Load(path)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
	assert.Positive(t, perr.Line)
	assert.Contains(t, perr.Error(), "at line")
}

func TestLoadInvalidValues(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "infopanel.toml", "[logging]\nlevel = \"loud\"\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"INFOPANEL_LOG_LEVEL":          "warn",
		"INFOPANEL_ADAPTER_COMMAND":    "dlv dap --listen=stdio",
		"INFOPANEL_PANEL_MINIMUM_SIZE": "5",
		"INFOPANEL_PANEL_LABEL":        "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, lookup))

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "dlv", cfg.Adapter.Command)
	assert.Equal(t, []string{"dap", "--listen=stdio"}, cfg.Adapter.Args)
	assert.Equal(t, 5, cfg.Panel.MinimumSize)
	assert.Equal(t, "", cfg.Panel.Label, "empty values are applied")
}

func TestApplyEnvInvalid(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "INFOPANEL_PANEL_MINIMUM_SIZE" {
			return "tall", true
		}
		return "", false
	}

	err := ApplyEnv(Default(), lookup)
	assert.ErrorIs(t, err, ErrInvalidEnv)
	assert.Contains(t, err.Error(), "INFOPANEL_PANEL_MINIMUM_SIZE")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "infopanel.toml", "[logging]\nlevel = \"debug\"\n")
	t.Setenv("INFOPANEL_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"command and address", func(c *Config) {
			c.Adapter.Command = "x"
			c.Adapter.Address = "localhost:4711"
		}, "mutually exclusive"},
		{"request", func(c *Config) { c.Adapter.Request = "restart" }, "adapter.request"},
		{"timeout", func(c *Config) { c.Adapter.RequestTimeout = "soon" }, "request_timeout"},
		{"negative timeout", func(c *Config) { c.Adapter.RequestTimeout = "-1s" }, "request_timeout"},
		{"minimum size", func(c *Config) { c.Panel.MinimumSize = -1 }, "minimum_size"},
		{"level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"settings path", func(c *Config) { c.Settings.Path = "" }, "settings.path"},
		{"breakpoint path", func(c *Config) {
			c.Breakpoints = []BreakpointConfig{{Line: 1}}
		}, "breakpoints[0].path"},
		{"breakpoint line", func(c *Config) {
			c.Breakpoints = []BreakpointConfig{{Path: "a.c"}}
		}, "breakpoints[0].line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Adapter.Request = "x"
	cfg.Logging.Level = "y"

	err := cfg.Validate()
	assert.Contains(t, err.Error(), "adapter.request")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestParseErrorFormat(t *testing.T) {
	inner := errors.New("boom")
	tests := []struct {
		err  *ParseError
		want string
	}{
		{&ParseError{Path: "a.toml", Line: 2, Column: 3, Message: "bad", Err: inner}, "parse error in a.toml at line 2, column 3: bad"},
		{&ParseError{Path: "a.toml", Line: 2, Message: "bad"}, "parse error in a.toml at line 2: bad"},
		{&ParseError{Path: "a.toml", Message: "bad"}, "parse error in a.toml: bad"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
	assert.ErrorIs(t, tests[0].err, inner)
}
