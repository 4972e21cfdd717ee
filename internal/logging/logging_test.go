package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ cron.Logger = CronLogger{}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestSetup_JSONOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var buf bytes.Buffer
	setup(&buf, "info", false)

	log.Debug().Msg("hidden")
	log.Info().Str("symbol", "AAPL").Msg("quote applied")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "quote applied", line["message"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.Contains(t, line, "time")
}

func TestCronLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	l := CronLogger{Logger: zerolog.New(&buf)}
	l.Error(errors.New("boom"), "panic", "job", "sync", 42)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "sync", line["job"])
	assert.NotContains(t, line, "42")
}
