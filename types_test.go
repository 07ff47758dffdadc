package frummy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLineRendersKeyValuePairs(t *testing.T) {
	line := logLine("DBG", "identity request", []any{"method", "POST", "endpoint", "/auth/v1/token"})
	assert.Equal(t, "[DBG] FRUMMY identity request method=POST endpoint=/auth/v1/token", line)
}

func TestLogLineWithoutArgs(t *testing.T) {
	line := logLine("INF", "server started", nil)
	assert.Equal(t, "[INF] FRUMMY server started", line)
}

func TestLogLineTrimsMessageSeparator(t *testing.T) {
	line := logLine("ERR", "login parse payload: ", []any{"error", errors.New("bad form")})
	assert.Equal(t, "[ERR] FRUMMY login parse payload error=bad form", line)
}

func TestLogLineDanglingArg(t *testing.T) {
	line := logLine("WRN", "odd", []any{"key", "value", "extra"})
	assert.Equal(t, "[WRN] FRUMMY odd key=value extra", line)
}
