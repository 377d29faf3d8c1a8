package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/protect-viewer/internal/config"
)

// A wall display runs for weeks between restarts. These bound the log file
// when the configuration leaves rotation unset.
const (
	defaultLogMaxSizeMB  = 20
	defaultLogBackups    = 3
	defaultLogMaxAgeDays = 14
)

const (
	consoleTimeLayout = "15:04:05.000"
	fileTimeLayout    = "2006-01-02T15:04:05.000Z07:00"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

const colorReset = "\x1b[0m"

var colorCodes = map[string]string{
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
}

// Initialize installs the process logger. Console lines go to consoleWriter;
// when cfg.LogFile is set, JSON lines also go to a rotated file. Only the
// first call has any effect.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{zapcore.NewCore(newEncoder(cfg), consoleWriter, level)}
		if cfg.LogFile != "" {
			file := zapcore.AddSync(rotatingFile(cfg))
			cores = append(cores, zapcore.NewCore(newEncoder(config.LoggerConfig{Format: "json"}), file, level))
		}

		options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			options = append(options, zap.AddCaller())
		}
		logger := zap.New(zapcore.NewTee(cores...), options...)
		if cfg.ServiceName != "" {
			logger = logger.Named(cfg.ServiceName)
		}

		globalLogger.Store(logger)
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger initializes the process logger on stdout.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(unsyncedWriter{os.Stdout}))
}

// ResetForTest clears the process logger. Tests only.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

// unsyncedWriter drops Sync. fsync on a terminal or pipe fails on several
// platforms, and stdout is not buffered.
type unsyncedWriter struct{ io.Writer }

func (unsyncedWriter) Sync() error { return nil }

// rotatingFile opens the log file named by cfg, expanding a leading ~ and
// filling unset rotation limits.
func rotatingFile(cfg config.LoggerConfig) *lumberjack.Logger {
	path, err := homedir.Expand(cfg.LogFile)
	if err != nil {
		path = cfg.LogFile
	}
	l := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	if l.MaxSize <= 0 {
		l.MaxSize = defaultLogMaxSizeMB
	}
	if l.MaxBackups <= 0 {
		l.MaxBackups = defaultLogBackups
	}
	if l.MaxAge <= 0 {
		l.MaxAge = defaultLogMaxAgeDays
	}
	return l
}

// levelColors resolves configured color names once. Unknown names leave the
// level uncolored.
func levelColors(c config.ColorConfig) map[zapcore.Level]string {
	names := map[zapcore.Level]string{
		zapcore.DebugLevel:  c.Debug,
		zapcore.InfoLevel:   c.Info,
		zapcore.WarnLevel:   c.Warn,
		zapcore.ErrorLevel:  c.Error,
		zapcore.DPanicLevel: c.DPanic,
		zapcore.PanicLevel:  c.Panic,
		zapcore.FatalLevel:  c.Fatal,
	}
	colors := make(map[zapcore.Level]string, len(names))
	for level, name := range names {
		if code, ok := colorCodes[strings.ToLower(name)]; ok {
			colors[level] = code
		}
	}
	return colors
}

func newEncoder(cfg config.LoggerConfig) zapcore.Encoder {
	enc := zap.NewProductionEncoderConfig()
	if cfg.Format != "console" {
		enc.EncodeTime = zapcore.TimeEncoderOfLayout(fileTimeLayout)
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(enc)
	}

	colors := levelColors(cfg.Colors)
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(consoleTimeLayout)
	enc.EncodeLevel = func(level zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
		name := level.CapitalString()
		if code, ok := colors[level]; ok {
			name = code + name + colorReset
		}
		pae.AppendString(name)
	}
	// protect-viewer.shell. reads as a prefix in front of the message.
	enc.EncodeName = func(name string, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(enc)
}

// GetLogger returns the process logger. Before initialization it returns a
// development logger so early errors still reach the terminal.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("early")
}

// Sync flushes the log file. Call before exiting.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: failed to flush the log file:", err)
	}
}
