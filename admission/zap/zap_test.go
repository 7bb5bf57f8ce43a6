package zap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*ZapWithTraceLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	sugar := zap.New(core).Sugar()

	return &ZapWithTraceLogger{Logger: sugar}, logs
}

func TestZap(t *testing.T) {
	t.Run("log with hydration", func(_ *testing.T) {
		l := &ZapWithTraceLogger{}
		l.logWithHydration(func(_ ...any) {}, "")
	})

	t.Run("logf with hydration", func(_ *testing.T) {
		l := &ZapWithTraceLogger{}
		l.logfWithHydration(func(_ string, _ ...any) {}, "", "")
	})

	t.Run("hydrateArgs prepends template", func(t *testing.T) {
		args := hydrateArgs("req-1: ", []any{"denied"})
		assert.Equal(t, []any{"req-1: ", "denied"}, args)
	})

	t.Run("hydrateArgs with empty template", func(t *testing.T) {
		args := hydrateArgs("", []any{"denied"})
		assert.Equal(t, []any{"denied"}, args)
	})

	t.Run("levels emit entries", func(t *testing.T) {
		zapLogger, logs := newObservedLogger()

		zapLogger.Info("a")
		zapLogger.Infof("%s", "b")
		zapLogger.Infoln("c")
		zapLogger.Error("d")
		zapLogger.Errorf("%s", "e")
		zapLogger.Errorln("f")
		zapLogger.Warn("g")
		zapLogger.Warnf("%s", "h")
		zapLogger.Warnln("i")
		zapLogger.Debug("j")
		zapLogger.Debugf("%s", "k")
		zapLogger.Debugln("l")

		assert.Equal(t, 12, logs.Len())
	})

	t.Run("default message template prefixes entries", func(t *testing.T) {
		zapLogger, logs := newObservedLogger()

		withTemplate := zapLogger.WithDefaultMessageTemplate("req-9 | ")
		withTemplate.Infof("counter degraded after %d failures", 3)

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, "req-9 | counter degraded after 3 failures", entries[0].Message)
	})

	t.Run("WithFields attaches structured context", func(t *testing.T) {
		zapLogger, logs := newObservedLogger()

		zapLogger.WithFields("namespace", "token").Info("verdict")

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, "token", entries[0].ContextMap()["namespace"])
	})

	t.Run("Sync", func(t *testing.T) {
		zapLogger, _ := newObservedLogger()
		assert.NoError(t, zapLogger.Sync())
	})
}
