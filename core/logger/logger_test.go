package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/staterouter/core/logger"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithConfig(logger.Config{Level: "debug", Format: "json"}),
		logger.WithAttrs(logger.Component("state")),
	)
	log.Debug("committed",
		logger.State(""),
		logger.Params(map[string]any{"b": 2, "a": 1}),
		logger.Error(nil),
	)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "committed", rec["msg"])
	assert.Equal(t, "state", rec["component"])
	assert.Equal(t, "(root)", rec["state"])
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, rec["params"])
	assert.NotContains(t, rec, "error")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
	assert.Equal(t, slog.Attr{}, logger.URL(""))
	assert.Equal(t, slog.Attr{}, logger.TransitionID(""))
	assert.Equal(t, slog.Attr{}, logger.Params(nil))
	assert.Equal(t, "errors", logger.Errors(nil, errors.New("x")).Key)
	assert.Equal(t, "users", logger.State("users").Value.String())

	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("bogus"))
}
