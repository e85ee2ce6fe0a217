package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Dir is where log files go: LOG_DIR, default "log".
func Dir() string {
	if d := os.Getenv("LOG_DIR"); d != "" {
		return d
	}
	return "log"
}

// NewLog tees JSON logs to stdout and a rotating file named n under Dir.
func NewLog(n string) *zap.Logger {
	dir := Dir()
	_ = os.MkdirAll(dir, 0o755)

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, n),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(os.Stdout), zap.InfoLevel),
	)
	return zap.New(core)
}

var (
	accessOnce sync.Once
	accessMu   sync.RWMutex
	accessLog  *zap.Logger
)

func accessLogger() *zap.Logger {
	accessOnce.Do(func() {
		accessMu.Lock()
		if accessLog == nil {
			accessLog = NewLog("http-access.log")
		}
		accessMu.Unlock()
	})
	accessMu.RLock()
	defer accessMu.RUnlock()
	return accessLog
}

// SetAccessLogger lets tests and CLIs override the access logger.
func SetAccessLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	accessMu.Lock()
	accessLog = l
	accessMu.Unlock()
}
