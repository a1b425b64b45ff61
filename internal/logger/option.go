package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// leveledCore overrides the threshold of the core it wraps.
type leveledCore struct {
	zapcore.Core

	level zapcore.Level
}

// WithLevel returns a zap option pinning the logger to the given level,
// detached from the shared atomic level. dial-ctl uses it to keep
// command output free of informational logging.
//
//nolint:ireturn,nolintlint // zap options are interfaces.
func WithLevel(level zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &leveledCore{Core: core, level: level}
	})
}

func (c *leveledCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

//nolint:gocritic // zapcore passes entries by value.
func (c *leveledCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}

	return checked
}

//nolint:ireturn,nolintlint // zapcore.Core is an interface by contract.
func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{Core: c.Core.With(fields), level: c.level}
}
