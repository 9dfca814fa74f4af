package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug", zapcore.InfoLevel))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN", zapcore.InfoLevel))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud", zapcore.InfoLevel))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("", zapcore.ErrorLevel))
}

func TestLogger_SetLevel(t *testing.T) {
	logger, err := NewLogger("development", "info")
	require.NoError(t, err)

	logger.SetLevel("error")
	assert.Equal(t, zapcore.ErrorLevel, logger.Level.Level())

	logger.SetLevel("bogus")
	assert.Equal(t, zapcore.ErrorLevel, logger.Level.Level())
}

func TestCollector(t *testing.T) {
	c := NewCollector("archive_test")

	c.ObserveStore("read", "prompts", nil, time.Millisecond)
	c.ObserveStore("read", "prompts", errors.New("x"), time.Millisecond)
	c.ToggleSettled("like", "committed")
	c.DanglingDropped("visual")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("read", "prompts", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("read", "prompts", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LikeToggles.WithLabelValues("like", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DanglingReferences.WithLabelValues("visual")))

	// Two collectors never collide on registration.
	assert.NotPanics(t, func() { NewCollector("archive_test") })

	var nilCollector *Collector
	assert.NotPanics(t, func() { nilCollector.ToggleSettled("like", "committed") })
}
