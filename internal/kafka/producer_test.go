package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/mutator"
)

func newEvent() *mutator.ChangeEvent {
	return &mutator.ChangeEvent{
		EventID:    "evt-1",
		Collection: "core",
		Identity:   "risk_thresholds/low_max",
		Action:     mutator.ActionUpsert,
		Value:      "35",
		Operator:   "alice",
		Timestamp:  1700000000000,
	}
}

func TestSendConfigChange(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	defer mp.Close()

	var captured []byte
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		captured = val
		return nil
	})

	p := NewProducerWithClient(mp, "")
	assert.Equal(t, TopicConfigChanges, p.Topic())
	require.NoError(t, p.SendConfigChange(context.Background(), newEvent()))

	var got mutator.ChangeEvent
	require.NoError(t, json.Unmarshal(captured, &got))
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "risk_thresholds/low_max", got.Identity)
	assert.Equal(t, "alice", got.Operator)
}

func TestSendConfigChange_Error(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	defer mp.Close()

	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerWithClient(mp, "custom-topic")
	err := p.SendConfigChange(context.Background(), newEvent())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestChangeCallback(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	defer mp.Close()

	mp.ExpectSendMessageAndSucceed()

	cb := NewProducerWithClient(mp, "").ChangeCallback()
	assert.NoError(t, cb(context.Background(), newEvent()))
}
