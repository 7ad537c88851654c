package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	v, ok := logger.Field("test info", "key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
	assert.Equal(t, 1, logger.Count("error"))
}

func TestMockLogger_DerivedLoggersShareBuffer(t *testing.T) {
	root := testutil.NewMockLogger()
	root.Named("scheduling").Named("sweep").Warn("slow")
	root.With(logging.EventID("e-1")).Debug("loaded")

	msgs := root.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "scheduling.sweep", msgs[0].Logger)
	assert.Equal(t, "debug", msgs[1].Level)
}
