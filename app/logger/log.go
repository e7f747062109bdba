package logger

import (
	"sync"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.Mutex
	logger       *zap.Logger
	namedLevels  []namedLevel
	namedLoggers = make(map[string]CtxLogger)
)

type namedLevel struct {
	name  string
	glob  glob.Glob
	level zapcore.Level
}

func init() {
	logger, _ = zap.NewDevelopmentConfig().Build()
}

// Default returns the global logger.
func Default() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// SetDefault replaces the global logger and rebinds every named logger to it.
func SetDefault(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	*logger = *l
	rebindNamed()
}

// SetNamedLevels sets per-logger levels. Names may be glob patterns like "stylus.*",
// the first matching entry wins.
func SetNamedLevels(nls []NamedLevel) {
	mu.Lock()
	defer mu.Unlock()
	setNamedLevelsLocked(nls)
	rebindNamed()
}

// setDefaultWithLevels swaps the logger and the levels together, so named
// loggers are never rebound to a core that filters their level out.
func setDefaultWithLevels(l *zap.Logger, nls []NamedLevel) {
	mu.Lock()
	defer mu.Unlock()
	*logger = *l
	setNamedLevelsLocked(nls)
	rebindNamed()
}

func setNamedLevelsLocked(nls []NamedLevel) {
	namedLevels = namedLevels[:0]
	for _, nl := range nls {
		lvl, err := zapcore.ParseLevel(nl.Level)
		if err != nil {
			continue
		}
		g, err := glob.Compile(nl.Name)
		if err != nil {
			continue
		}
		namedLevels = append(namedLevels, namedLevel{name: nl.Name, glob: g, level: lvl})
	}
}

// levelFor must be called with mu held
func levelFor(name string) zapcore.Level {
	for _, nl := range namedLevels {
		if nl.name == name || nl.glob.Match(name) {
			return nl.level
		}
	}
	return logger.Level()
}

func newNamedLocked(name string, fields ...zap.Field) *zap.Logger {
	return zap.New(logger.Core(), zap.AddCaller()).
		Named(name).
		WithOptions(zap.IncreaseLevel(levelFor(name)), zap.Fields(fields...))
}

func rebindNamed() {
	for name, nl := range namedLoggers {
		*(nl.Logger) = *newNamedLocked(name)
	}
}

// NewNamed returns a logger with the given name. Loggers are cached, so the
// fields are only applied the first time a name is requested.
func NewNamed(name string, fields ...zap.Field) CtxLogger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := namedLoggers[name]; ok {
		return l
	}
	l := CtxLogger{Logger: newNamedLocked(name, fields...), name: name}
	namedLoggers[name] = l
	return l
}
