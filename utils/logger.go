package utils

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI colour codes for console level names.
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
)

var global atomic.Pointer[zap.Logger]

// NewLogger builds a zap logger writing to stdout. format is "console"
// (colored levels) or "json".
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "console":
		encCfg.EncodeLevel = colorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel)), nil
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := reset
	switch level {
	case zapcore.DebugLevel:
		color = cyan
	case zapcore.InfoLevel:
		color = blue
	case zapcore.WarnLevel:
		color = yellow
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = red
	}
	enc.AppendString(color + level.CapitalString() + reset)
}

// SetLogger installs l as the process logger.
func SetLogger(l *zap.Logger) {
	global.Store(l)
}

// L returns the process logger, or a no-op logger before SetLogger.
func L() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

func Sync() {
	if l := global.Load(); l != nil {
		_ = l.Sync()
	}
}

func Info(format string, a ...interface{}) {
	L().Sugar().Infof(format, a...)
}

// Success logs at info level with a green marker.
func Success(format string, a ...interface{}) {
	L().Sugar().Infof(green+"✓ "+reset+format, a...)
}

func Warn(format string, a ...interface{}) {
	L().Sugar().Warnf(format, a...)
}

func Error(format string, a ...interface{}) {
	L().Sugar().Errorf(format, a...)
}

func Section(title string) {
	L().Sugar().Infof("%s══════════ %s ══════════%s", cyan, title, reset)
}
