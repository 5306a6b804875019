package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestToMessage(t *testing.T) {
	m := toMessage(redis.XMessage{
		ID:     "1700000000000-0",
		Values: map[string]interface{}{"body": `{"cuisine":"italian"}`},
	}, 2)

	assert.Equal(t, "1700000000000-0", m.ID)
	assert.Equal(t, []byte(`{"cuisine":"italian"}`), m.Body)
	assert.EqualValues(t, 2, m.DeliveryCount)
}

func TestToMessageMissingBody(t *testing.T) {
	m := toMessage(redis.XMessage{
		ID:     "1700000000000-1",
		Values: map[string]interface{}{},
	}, 1)

	// A bodyless entry parses as malformed downstream and gets discarded,
	// which is the right poison-message behavior.
	assert.Nil(t, m.Body)
}
