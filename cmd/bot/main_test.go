package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerKeepsSingleComponentKey(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).With().Str("component", "bot").Logger()

	logger := component(base, "ui")
	logger.Info().Msg("hello")

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, `"component"`))

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &fields))
	assert.Equal(t, "bot", fields["component"])
	assert.Equal(t, "ui", fields["module"])
}
