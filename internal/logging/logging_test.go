package logging

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestSelectWriter(t *testing.T) {
	assert.Equal(t, os.Stderr, selectWriter("json", os.Stderr))
	assert.IsType(t, zerolog.ConsoleWriter{}, selectWriter("console", os.Stderr))
}
