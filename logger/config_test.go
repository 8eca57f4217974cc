package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestManagerConfig_ApplyDefaults(t *testing.T) {
	cfg := ManagerConfig{Level: "debug"}
	cfg.ApplyDefaults()

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "logs", cfg.BaseLogDir)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 28, cfg.MaxAge)
	assert.Equal(t, "trace_id", cfg.TraceIDKey)
	assert.Equal(t, "error", cfg.StacktraceLevel)
	assert.NoError(t, cfg.Validate())
}

func TestManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ManagerConfig)
		wantErr bool
	}{
		{"defaults", func(c *ManagerConfig) {}, false},
		{"bad level", func(c *ManagerConfig) { c.Level = "verbose" }, true},
		{"bad encoding", func(c *ManagerConfig) { c.Encoding = "console_pretty" }, true},
		{"bad console encoding", func(c *ManagerConfig) { c.ConsoleEncoding = "xml" }, true},
		{"max size too large", func(c *ManagerConfig) { c.MaxSize = 20000 }, true},
		{"negative backups", func(c *ManagerConfig) { c.MaxBackups = -1 }, true},
		{"bad stack level", func(c *ManagerConfig) { c.StacktraceLevel = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultManagerConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("unknown"))
}

func TestModuleConfig_BuildFilePath(t *testing.T) {
	cfg := moduleConfig{
		moduleName:            "signal",
		logDir:                "logs",
		EnableLevelInFilename: true,
	}
	assert.Equal(t, "logs/signal/signal-error.log", cfg.buildFilePath("error"))

	cfg.EnableLevelInFilename = false
	assert.Equal(t, "logs/signal/signal.log", cfg.buildFilePath("info"))
}
