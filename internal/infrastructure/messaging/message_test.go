package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/service"
)

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(10))
}

func TestDecodeRoundTripsUsagePayload(t *testing.T) {
	usage := service.GenerationUsage{EventID: "evt-1", UserID: "u-1", Mode: entity.ModeArticle, Units: 50}
	msg, err := NewUsageMessage(usage)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", msg.ID)
	msg.SetMetadata(MetaRequestID, "req-1")
	msg.SetMetadata(MetaTraceID, "")

	raw, err := jsonString(msg)
	require.NoError(t, err)

	decoded, err := decode(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": raw}})
	require.NoError(t, err)
	assert.Equal(t, TypeGenerationCompleted, decoded.Type)
	assert.Equal(t, "req-1", decoded.Metadata[MetaRequestID])
	assert.Equal(t, string(entity.ModeArticle), decoded.Metadata[MetaMode])
	_, hasTrace := decoded.Metadata[MetaTraceID]
	assert.False(t, hasTrace)

	got, err := decoded.DecodeUsage()
	require.NoError(t, err)
	assert.EqualValues(t, 50, got.Units)
	assert.Equal(t, entity.ModeArticle, got.Mode)
}

func TestDecodeUsageRejectsOtherTypes(t *testing.T) {
	msg := &Message{Type: "other", Payload: []byte(`{}`)}
	_, err := msg.DecodeUsage()
	assert.Error(t, err)
}

func TestCalculateBackoffZeroConfig(t *testing.T) {
	assert.Equal(t, time.Second, BackoffConfig{}.CalculateBackoff(3))
}

func TestDecodeRejectsMissingData(t *testing.T) {
	_, err := decode(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"other": "x"}})
	assert.Error(t, err)
}

func TestDLQStreamName(t *testing.T) {
	assert.Equal(t, "dlq:stream:generation:usage", StreamGenerationUsage.DLQStream())
}

func jsonString(m *Message) (string, error) {
	b, err := json.Marshal(m)
	return string(b), err
}
