package logging

import (
	corelogger "github.com/axops/axops-core/pkg/logger"
	"go.uber.org/zap"
)

// Logger is the minimal logging interface used across the engines so that
// internal packages depend on this adapter rather than pkg/logger directly.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

// New returns a zap-backed Logger. The production entry points supply the
// core logger via FromCoreLogger; this constructor mostly serves tests.
func New(level string) Logger {
	return &zapAdapter{logger: zap.NewNop()}
}

// FromCoreLogger wraps the project core logger into the internal adapter.
// A nil core logger yields a no-op adapter so engine constructors never
// have to guard their logging calls.
func FromCoreLogger(core corelogger.Logger) Logger {
	if core == nil {
		return New("info")
	}
	return &coreAdapter{core: core}
}

type coreAdapter struct {
	core corelogger.Logger
}

func (c *coreAdapter) Info(msg string, fields ...interface{})  { c.core.Info(msg, fields...) }
func (c *coreAdapter) Error(msg string, fields ...interface{}) { c.core.Error(msg, fields...) }
func (c *coreAdapter) Warn(msg string, fields ...interface{})  { c.core.Warn(msg, fields...) }
func (c *coreAdapter) Debug(msg string, fields ...interface{}) { c.core.Debug(msg, fields...) }
func (c *coreAdapter) Fatal(msg string, fields ...interface{}) { c.core.Fatal(msg, fields...) }

type zapAdapter struct {
	logger *zap.Logger
}

func (z *zapAdapter) Info(msg string, fields ...interface{}) {
	z.logger.Sugar().Infow(msg, fields...)
}

func (z *zapAdapter) Error(msg string, fields ...interface{}) {
	z.logger.Sugar().Errorw(msg, fields...)
}

func (z *zapAdapter) Warn(msg string, fields ...interface{}) {
	z.logger.Sugar().Warnw(msg, fields...)
}

func (z *zapAdapter) Debug(msg string, fields ...interface{}) {
	z.logger.Sugar().Debugw(msg, fields...)
}

func (z *zapAdapter) Fatal(msg string, fields ...interface{}) {
	z.logger.Sugar().Fatalw(msg, fields...)
}
