package ws

import (
	"context"
	"log"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/live"
)

// Bridge forwards live snapshots and analysis results to the WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

// Run forwards every snapshot published by feed until ctx is done.
func (b *Bridge) Run(ctx context.Context, feed *live.Feed) {
	snaps, cancel := feed.Subscribe(64)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snaps:
			if !ok {
				return
			}
			b.OnSnapshot(s)
		}
	}
}

func (b *Bridge) OnSnapshot(s live.Snapshot) {
	msg, err := NewEnvelope(TypeLiveSnapshot, SnapshotFromFeed(s))
	if err != nil {
		log.Printf("Error marshaling live snapshot: %v", err)
		return
	}
	b.hub.Broadcast(msg)

	for _, r := range s.Readings() {
		msg, err := NewEnvelope(TypeSensorReading, ReadingFromModel(r))
		if err != nil {
			log.Printf("Error marshaling sensor reading: %v", err)
			return
		}
		b.hub.Broadcast(msg)
	}
}

func (b *Bridge) OnSummary(s analysis.Summary) {
	msg, err := NewEnvelope(TypeAnalysisSummary, s)
	if err != nil {
		log.Printf("Error marshaling analysis summary: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
