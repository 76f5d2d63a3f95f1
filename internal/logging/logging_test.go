package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jask/recruitmetrics/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]logrus.Level{
		"":        logrus.InfoLevel,
		"info":    logrus.InfoLevel,
		"DEBUG":   logrus.DebugLevel,
		" warn ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestJSONFormatterWithPrefix(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	WithPrefix(log, "ingest").WithField("rows", 3).Debug("imported")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "ingest", entry["prefix"])
	require.Equal(t, "imported", entry["msg"])
	require.EqualValues(t, 3, entry["rows"])
}

func TestTextFormatterRespectsLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)

	log.Info("hidden")
	require.Empty(t, buf.String())
	log.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}
