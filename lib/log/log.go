package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sink    = &swapSink{out: zapcore.Lock(os.Stderr)}
	base    *zap.Logger
	loggers = make(map[string]*zap.SugaredLogger)
)

func init() {
	base = build()
}

// swapSink forwards to the current output. Every logger writes through it,
// so the output changes without touching the loggers.
type swapSink struct {
	lk   sync.RWMutex
	out  zapcore.WriteSyncer
	file *lumberjack.Logger
}

func (s *swapSink) Write(p []byte) (int, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.out.Write(p)
}

func (s *swapSink) Sync() error {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.out.Sync()
}

func (s *swapSink) setFile(f *lumberjack.Logger) {
	s.lk.Lock()
	prev := s.file
	s.out = zapcore.AddSync(f)
	s.file = f
	s.lk.Unlock()

	if prev != nil {
		prev.Close()
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func build() *zap.Logger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), sink, level)
	return zap.New(core, zap.AddCaller())
}

// Logger returns the named subsystem logger.
func Logger(name string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}

	l := base.Named(name).Sugar()
	loggers[name] = l
	return l
}

// SetLevel changes the level of every logger, e.g. "debug", "info", "warn".
func SetLevel(lvl string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(lvl)); err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

// SetOutput redirects all loggers, including those already handed out, to
// a rotating file. It is safe while other goroutines log.
func SetOutput(file string, maxSizeMB, maxBackups int) {
	sink.setFile(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	})
}
