package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteodata.example/meteodata-server/internal/config"
)

func TestInitAcceptsJSONAndText(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		err := Init(config.LogConfig{Level: "info", Format: format})
		require.NoError(t, err)
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}
