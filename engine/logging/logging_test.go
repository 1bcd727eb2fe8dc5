package logging

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { Logger().SetLevel(log.InfoLevel) })

	assert.Same(t, Logger(), Logger())
	assert.Equal(t, log.InfoLevel, Logger().GetLevel())

	assert.NoError(t, SetLevel("debug"))
	assert.Equal(t, log.DebugLevel, Logger().GetLevel())

	assert.NoError(t, SetLevel(""))
	assert.Equal(t, log.DebugLevel, Logger().GetLevel(), "empty level is a no-op")

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, log.DebugLevel, Logger().GetLevel())
}
