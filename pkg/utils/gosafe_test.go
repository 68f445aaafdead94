package utils

import (
	"testing"
	"time"

	"golang-etf-decision/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{Logger: zap.New(core)}, logs
}

func TestRunSafe(t *testing.T) {
	tests := []struct {
		name     string
		fn       func()
		panicked bool
	}{
		{name: "returns normally", fn: func() {}},
		{name: "panics with string", fn: func() { panic("boom") }, panicked: true},
		{name: "panics with nil map write", fn: func() {
			var m map[string]int
			m["x"] = 1
		}, panicked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observedLogger()

			assert.Equal(t, tt.panicked, RunSafe(log, tt.fn))

			if !tt.panicked {
				assert.Zero(t, logs.Len())
				return
			}
			entries := logs.FilterMessage("Recovered from panic").All()
			require.Len(t, entries, 1)
			assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
			assert.Contains(t, entries[0].ContextMap()["stack"], "gosafe_test.go")
		})
	}
}

func TestGoSafe_LogsPanic(t *testing.T) {
	log, logs := observedLogger()

	GoSafe(log, func() { panic("worker died") })

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Recovered from panic").Len() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "worker died", logs.All()[0].ContextMap()["panic"])
}
