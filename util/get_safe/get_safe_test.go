package getsafe

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodedPayload(t *testing.T) {
	raw := `{"content":"Buy milk","tags":["groceries","home"],"embedding":[0.5,-1,2],"updated":"2026-01-02T03:04:05.123Z","count":3}`

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, "Buy milk", String(payload, "content"))
	assert.Equal(t, "", String(payload, "count"))
	assert.Equal(t, "", String(payload, "missing"))

	assert.Equal(t, []string{"groceries", "home"}, Strings(payload, "tags"))
	assert.Equal(t, []string{"Buy milk"}, Strings(payload, "content"))
	assert.Nil(t, Strings(payload, "missing"))

	assert.Equal(t, []float32{0.5, -1, 2}, Float32s(payload, "embedding"))
	assert.Nil(t, Float32s(payload, "content"))

	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 123000000, time.UTC), Time(payload, "updated").UTC())
	assert.True(t, Time(payload, "missing").IsZero())
}
