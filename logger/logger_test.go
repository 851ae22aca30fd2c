package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json format emits structured lines", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, int(zerolog.InfoLevel), "json", false)
		log.Info().Str("chain", "31337").Msg("hello")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "hello", line["message"])
		assert.Equal(t, "31337", line["chain"])
		assert.Contains(t, line, "time")
	})

	t.Run("level filters lower events", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, int(zerolog.WarnLevel), "json", false)
		log.Info().Msg("dropped")
		assert.Zero(t, buf.Len())
	})

	t.Run("console format is not json", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, int(zerolog.DebugLevel), "console", false)
		log.Debug().Msg("readable")
		assert.Contains(t, buf.String(), "readable")
		assert.False(t, json.Valid(buf.Bytes()))
	})

	t.Run("sampler keeps every fifth event", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, int(zerolog.InfoLevel), "json", true)
		for i := 0; i < 10; i++ {
			log.Info().Msg("tick")
		}
		assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
	})
}
