package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidal_efficiency/internal/live"
	"tidal_efficiency/internal/model"
)

func TestNewEnvelope(t *testing.T) {
	payload := SnapshotPayload{Sea: 2.41, Lake: 0.87, Head: 1.54, Waste: 35, LossCum: 3, Seq: 1}

	msg, err := NewEnvelope(TypeLiveSnapshot, payload)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, TypeLiveSnapshot, env.Type)

	var parsed SnapshotPayload
	require.NoError(t, json.Unmarshal(env.Payload, &parsed))
	assert.Equal(t, payload, parsed)
}

func TestNewEnvelope_NoPayload(t *testing.T) {
	msg, err := NewEnvelope(TypeLiveRequest, nil)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, TypeLiveRequest, env.Type)
	assert.Nil(t, env.Payload)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 16)}

	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	c1 := &Client{hub: hub, send: make(chan []byte, 16)}
	c2 := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.Register(c1)
	hub.Register(c2)

	msg := []byte(`{"type":"test"}`)
	hub.Broadcast(msg)

	assert.Equal(t, msg, <-c1.send)
	assert.Equal(t, msg, <-c2.send)
}

func TestHub_BroadcastSkipsFullClients(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(slow)

	hub.Broadcast([]byte("a"))
	hub.Broadcast([]byte("b"))

	assert.Equal(t, []byte("a"), <-slow.send)
	assert.Len(t, slow.send, 0)
	assert.Equal(t, int64(1), hub.Dropped())
}

func TestSnapshotFromFeed(t *testing.T) {
	ts := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	p := SnapshotFromFeed(live.Snapshot{Sea: 2, Lake: 1, Head: 1, Waste: 20, LossCum: 4, UpdatedAt: ts, Seq: 7})
	assert.Equal(t, "2024-07-01T09:00:00Z", p.Timestamp)
	assert.Equal(t, uint64(7), p.Seq)
	assert.Equal(t, 4, p.LossCum)

	assert.Empty(t, SnapshotFromFeed(live.Snapshot{}).Timestamp)
}

func TestReadingFromModel(t *testing.T) {
	p := ReadingFromModel(model.Reading{
		Timestamp: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		SensorID:  "head",
		Type:      model.SensorHead,
		Value:     1.5,
		Unit:      "m",
	})
	assert.Equal(t, SensorReadingPayload{SensorID: "head", Value: 1.5, Unit: "m", Timestamp: "2024-07-01T09:00:00Z"}, p)
}

func TestMessageTypes(t *testing.T) {
	assert.Equal(t, "live:request", TypeLiveRequest)
	assert.Equal(t, "history:request", TypeHistoryRequest)
	assert.Equal(t, "live:snapshot", TypeLiveSnapshot)
	assert.Equal(t, "sensor:reading", TypeSensorReading)
	assert.Equal(t, "data:loaded", TypeDataLoaded)
	assert.Equal(t, "analysis:summary", TypeAnalysisSummary)
	assert.Equal(t, "history:day", TypeHistoryDay)
}
