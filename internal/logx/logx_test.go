package logx

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, tc := range map[string]struct {
		in    string
		debug bool
		want  zerolog.Level
	}{
		"empty defaults to warn": {in: "", want: zerolog.WarnLevel},
		"known level":            {in: "Info", want: zerolog.InfoLevel},
		"unknown level":          {in: "chatty", want: zerolog.WarnLevel},
		"debug overrides":        {in: "error", debug: true, want: zerolog.DebugLevel},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, ParseLevel(tc.in, tc.debug))
		})
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Out: &buf})
	logger.Info().Str("provider", "research").Msg("connected")
	logger.Debug().Msg("hidden")

	out := buf.String()
	require.Contains(t, out, `"provider":"research"`)
	require.Contains(t, out, `"message":"connected"`)
	require.NotContains(t, out, "hidden")
}
