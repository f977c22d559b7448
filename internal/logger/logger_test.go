package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogger_JSONCarriesContextAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", ServiceName: "ledger", Output: &buf})

	ctx := WithCorrelationID(context.Background(), "req-1")
	log.WithFields(map[string]interface{}{"component": "uow"}).
		Error(ctx, "rollback failed", errors.New("conn closed"), map[string]interface{}{"entity_id": 4})

	line := decodeLine(t, &buf)
	assert.Equal(t, "rollback failed", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "req-1", line["correlation_id"])
	assert.Equal(t, "conn closed", line["error"])
	assert.Equal(t, "ledger", line["service"])
	assert.Equal(t, "uow", line["component"])
	assert.EqualValues(t, 4, line["entity_id"])
	assert.Contains(t, line["caller"], "logger_test.go")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Info(context.Background(), "hidden", nil)
	assert.Zero(t, buf.Len())

	log.Warn(context.Background(), "shown", nil)
	assert.NotZero(t, buf.Len())
}

func TestLogPerformance(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	LogPerformance(context.Background(), log, "create_transaction", 15*time.Millisecond, nil)

	line := decodeLine(t, &buf)
	assert.Equal(t, "performance", line["event_type"])
	assert.Equal(t, "create_transaction", line["operation"])
	assert.EqualValues(t, 15, line["duration_ms"])
}

func TestCorrelationID_Missing(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
}
