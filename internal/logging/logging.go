// Package logging provides a small structured-logging facade over zap,
// with one cached [Logger] per named component (e.g. "model", "matcher",
// "enforcer"). Levels can be overridden per component or globally via
// [SetLevels], using the same "comp:level;comp2:level2;.:level" syntax
// the teacher's configuration layer uses for its own log-level string.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	fieldComponent = "component"
	fieldOp        = "op"
)

// Logger wraps a zap.SugaredLogger, tagging every record with the
// component it was obtained for and, optionally, the operation being
// performed (add policy, evaluate request, build role graph, ...).
type Logger struct {
	component string
	level     zapcore.Level
	out       io.Writer
	sugar     *zap.SugaredLogger
}

func newLogger(component string, level zapcore.Level) *Logger {
	l := &Logger{component: component, level: level, out: os.Stdout}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if os.Getenv("PERMENGINE_LOG_FORMAT") == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(l.out), l.level)
	l.sugar = zap.New(core, zap.AddCallerSkip(1)).Sugar()
}

// SetOutput redirects this logger's output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
	l.rebuild()
}

// SetLevel changes this logger's minimum level.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level = level
	l.rebuild()
}

// Enabled reports whether level would currently be logged.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.level.Enabled(level)
}

func (l *Logger) with(op string) *zap.SugaredLogger {
	return l.sugar.With(zap.String(fieldComponent, l.component), zap.String(fieldOp, op))
}

// Debugf logs at debug level, tagging the record with op.
func (l *Logger) Debugf(op, format string, args ...interface{}) { l.with(op).Debugf(format, args...) }

// Infof logs at info level, tagging the record with op.
func (l *Logger) Infof(op, format string, args ...interface{}) { l.with(op).Infof(format, args...) }

// Warnf logs at warn level, tagging the record with op.
func (l *Logger) Warnf(op, format string, args ...interface{}) { l.with(op).Warnf(format, args...) }

// Errorf logs at error level, tagging the record with op.
func (l *Logger) Errorf(op, format string, args ...interface{}) { l.with(op).Errorf(format, args...) }

// registry of per-component loggers, with a default level applied to any
// component that hasn't been given an explicit override.
var (
	mu           sync.RWMutex
	loggers      = map[string]*Logger{}
	defaultLevel = zapcore.InfoLevel
)

// Get returns the cached logger for component, creating it at the current
// default level on first use.
func Get(component string) *Logger {
	mu.RLock()
	l, ok := loggers[component]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok = loggers[component]; ok {
		return l
	}
	l = newLogger(component, defaultLevel)
	loggers[component] = l
	return l
}

func parseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(s) {
	case "panic":
		return zapcore.PanicLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "debug", "trace":
		return zapcore.DebugLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// SetLevels parses a "component:level;component2:level2;.:level" string,
// applying explicit overrides to the named components and "." as the new
// default for every component without one. Unknown levels are ignored.
// Components not yet fetched via [Get] pick up the setting lazily through
// defaultLevel; components already cached are updated in place.
func SetLevels(spec string) {
	spec = strings.NewReplacer(" ", "", "\t", "", "\n", "").Replace(spec)
	if spec == "" {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	explicit := map[string]zapcore.Level{}
	for _, entry := range strings.Split(spec, ";") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		level, ok := parseLevel(parts[1])
		if !ok {
			continue
		}
		if parts[0] == "." {
			defaultLevel = level
			continue
		}
		explicit[parts[0]] = level
		if l, ok := loggers[parts[0]]; ok {
			l.SetLevel(level)
		} else {
			loggers[parts[0]] = newLogger(parts[0], level)
		}
	}

	for name, l := range loggers {
		if _, hasOverride := explicit[name]; !hasOverride {
			l.SetLevel(defaultLevel)
		}
	}
}
