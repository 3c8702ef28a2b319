package logger

import (
	"io"

	"go.uber.org/zap/zapcore"
)

type (
	// Option for init logger
	Option struct {
		MultiWriter []io.Writer
		Level       zapcore.Level
	}

	// OptionFunc func
	OptionFunc func(*Option)
)

// OptionSetWriter overrides all log writers
func OptionSetWriter(w ...io.Writer) OptionFunc {
	return func(o *Option) {
		o.MultiWriter = w
	}
}

// OptionDebug lowers the minimum level to debug
func OptionDebug(debug bool) OptionFunc {
	return func(o *Option) {
		if debug {
			o.Level = zapcore.DebugLevel
		}
	}
}
