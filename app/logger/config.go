package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogFormat int

const (
	ColorizedOutput LogFormat = iota
	PlaintextOutput
	JSONOutput
)

type NamedLevel struct {
	Name  string `mapstructure:"name"`
	Level string `mapstructure:"level"`
}

// Rotation enables lumberjack rotation for file outputs.
type Rotation struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

type Config struct {
	Production   bool         `mapstructure:"production"`
	DefaultLevel string       `mapstructure:"default_level"`
	Levels       []NamedLevel `mapstructure:"levels"` // first match will be used
	Format       LogFormat    `mapstructure:"format"`
	// Outputs are "stdout", "stderr" or file paths. Empty means stderr.
	Outputs  []string `mapstructure:"outputs"`
	Rotation Rotation `mapstructure:"rotation"`
}

func (l Config) encoder() zapcore.Encoder {
	var enc zapcore.EncoderConfig
	if l.Production {
		enc = zap.NewProductionEncoderConfig()
	} else {
		enc = zap.NewDevelopmentEncoderConfig()
	}
	switch l.Format {
	case PlaintextOutput:
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(enc)
	case JSONOutput:
		enc.MessageKey = "msg"
		enc.TimeKey = "ts"
		enc.LevelKey = "level"
		enc.NameKey = "logger"
		enc.CallerKey = "caller"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(enc)
	default:
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(enc)
	}
}

func (l Config) writer(out string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(out) {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr", "":
		return zapcore.Lock(os.Stderr), nil
	}
	if l.Rotation.Enable {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   out,
			MaxSize:    max(l.Rotation.MaxSizeMB, 10),
			MaxBackups: max(l.Rotation.MaxBackups, 1),
			MaxAge:     max(l.Rotation.MaxAgeDays, 7),
			Compress:   l.Rotation.Compress,
		}), nil
	}
	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(f), nil
}

func (l Config) defaultLevel() (zapcore.Level, error) {
	if l.DefaultLevel == "" {
		if l.Production {
			return zapcore.InfoLevel, nil
		}
		return zapcore.DebugLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.DefaultLevel)
	if err != nil {
		return lvl, fmt.Errorf("invalid default level %q: %w", l.DefaultLevel, err)
	}
	return lvl, nil
}

// namedLevels returns Levels closed by a "*" entry holding the default level,
// since the root core may be lowered below it.
func (l Config) namedLevels() ([]NamedLevel, error) {
	level, err := l.defaultLevel()
	if err != nil {
		return nil, err
	}
	levels := append([]NamedLevel(nil), l.Levels...)
	return append(levels, NamedLevel{Name: "*", Level: level.String()}), nil
}

// Build creates a logger from the config without touching the global one.
func (l Config) Build() (*zap.Logger, error) {
	level, err := l.defaultLevel()
	if err != nil {
		return nil, err
	}
	// the root core has to let through the lowest named level
	for _, nl := range l.Levels {
		if lvl, err := zapcore.ParseLevel(nl.Level); err == nil && lvl < level {
			level = lvl
		}
	}

	outputs := l.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	enc := l.encoder()
	cores := make([]zapcore.Core, 0, len(outputs))
	for _, out := range outputs {
		ws, err := l.writer(out)
		if err != nil {
			return nil, fmt.Errorf("open log output %q: %w", out, err)
		}
		cores = append(cores, zapcore.NewCore(enc, ws, level))
	}
	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if !l.Production {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// ApplyGlobal builds the logger and installs it as the default one.
func (l Config) ApplyGlobal() error {
	levels, err := l.namedLevels()
	if err != nil {
		return err
	}
	lg, err := l.Build()
	if err != nil {
		return err
	}
	setDefaultWithLevels(lg, levels)
	return nil
}

// LevelsFromStr parses a string of the form "name1=DEBUG;prefix*=WARN;*=ERROR" into a slice of NamedLevel.
// A bare level like "debug" is the same as "*=debug". Unparsable entries are skipped.
func LevelsFromStr(s string) (levels []NamedLevel) {
	for _, kv := range strings.Split(s, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		name, value, found := strings.Cut(kv, "=")
		if !found {
			name, value = "*", kv
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if _, err := zapcore.ParseLevel(value); err != nil {
			continue
		}
		levels = append(levels, NamedLevel{Name: name, Level: value})
	}
	return levels
}
