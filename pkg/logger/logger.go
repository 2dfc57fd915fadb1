package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InfoLogger — диагностический поток (только консоль, по порогу).
// ActionLogger — торговые действия: консоль + файл.
var (
	InfoLogger   = zap.NewNop()
	FatalLogger  = zap.NewNop()
	ActionLogger = zap.NewNop()
)

var (
	serviceName = "default"
)

type Config struct {
	ConsoleLevel string
	File         string
}

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init собирает двухканальный логгер. Файл содержит ТОЛЬКО Action.
func Init(conf Config) (func(), error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		ParseLevel(conf.ConsoleLevel),
	)
	InfoLogger = zap.New(console)
	FatalLogger = zap.New(console)

	if conf.File == "" {
		ActionLogger = InfoLogger
		return func() { _ = InfoLogger.Sync() }, nil
	}

	if err := os.MkdirAll(filepath.Dir(conf.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(conf.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open action log: %w", err)
	}

	// консоль для действий без порога: действие видно всегда
	actionConsole := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	actionFile := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)
	ActionLogger = zap.New(zapcore.NewTee(actionConsole, actionFile))

	return func() {
		_ = InfoLogger.Sync()
		_ = ActionLogger.Sync()
		_ = f.Close()
	}, nil
}

// ParseLevel неизвестное значение — info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "notice", "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func Debug(format string, args ...interface{}) {
	InfoLogger.With(
		zap.String("service", serviceName),
	).Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	InfoLogger.With(
		zap.String("service", serviceName),
	).Info(msg)
}

func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	InfoLogger.With(
		zap.String("service", serviceName),
	).Warn(msg)
}

func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	InfoLogger.With(
		zap.String("service", serviceName),
	).Error(msg)
}

// Action единственный метод, который пишет в файл: OPEN / REDUCE / CLOSE / FLIP / TPSL.
func Action(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	ActionLogger.With(
		zap.String("service", serviceName),
		zap.String("channel", "action"),
	).Info(msg)
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	FatalLogger.With(
		zap.String("service", serviceName),
	).Fatal(msg)
}
