package utils

import (
	"runtime/debug"

	"golang-etf-decision/pkg/logger"
)

// GoSafe runs fn in a goroutine. A panic is recovered and logged with its stack.
func GoSafe(log *logger.Logger, fn func()) {
	go func() {
		RunSafe(log, fn)
	}()
}

// RunSafe calls fn and reports whether it panicked. The panic value and stack go to log.
func RunSafe(log *logger.Logger, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			log.Error("Recovered from panic",
				logger.Field("panic", r),
				logger.StringField("stack", string(debug.Stack())))
		}
	}()
	fn()
	return false
}
