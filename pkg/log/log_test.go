package log_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ezoic/plantreco/pkg/log"
)

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, log.ToLogLevel(tt.in))
		})
	}
}

func TestNamedLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log.SetupLoggerWithFormat("debug", "json", &buf)
	defer log.SetupLogger("info")

	logger := log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestClassifier")
	logger.Info("Training started", log.SamplesKey, 12, log.FeaturesKey, 7)

	out := buf.String()
	assert.Contains(t, out, `"component":"ensemble"`)
	assert.Contains(t, out, `"model_name":"RandomForestClassifier"`)
	assert.Contains(t, out, `"samples":12`)
	assert.Contains(t, out, `"message":"Training started"`)
}

func TestLogErrorIncludesMarker(t *testing.T) {
	var buf bytes.Buffer
	log.SetupLoggerWithFormat("info", "json", &buf)
	defer log.SetupLogger("info")

	log.Failure(errors.New("missing file"))
	log.LogError(nil, "ignored")

	out := buf.String()
	assert.Contains(t, out, log.FailureMarker)
	assert.Contains(t, out, "missing file")
	assert.NotContains(t, out, "ignored")
}

func TestNopLogger(t *testing.T) {
	l := log.Nop().With("k", "v")
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Error("y", "err", errors.New("z"))
	})
}
