package ws

import (
	"encoding/json"
	"time"

	"tidal_efficiency/internal/live"
	"tidal_efficiency/internal/model"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type HistoryRequestPayload struct {
	Date string `json:"date"`
}

// Server -> Client messages

type SnapshotPayload struct {
	Sea       float64 `json:"sea"`
	Lake      float64 `json:"lake"`
	Head      float64 `json:"head"`
	Waste     int     `json:"waste"`
	LossCum   int     `json:"loss_cum"`
	Timestamp string  `json:"timestamp,omitempty"`
	Seq       uint64  `json:"seq"`
}

type SensorReadingPayload struct {
	SensorID  string  `json:"sensor_id"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Timestamp string  `json:"timestamp"`
}

type SensorInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Unit string `json:"unit"`
}

type DataLoadedPayload struct {
	Sensors []SensorInfo `json:"sensors"`
}

type HistoryPayload struct {
	Date     string                 `json:"date"`
	Readings []SensorReadingPayload `json:"readings"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Message type constants
const (
	// Client -> Server
	TypeLiveRequest    = "live:request"
	TypeHistoryRequest = "history:request"

	// Server -> Client
	TypeLiveSnapshot    = "live:snapshot"
	TypeSensorReading   = "sensor:reading"
	TypeDataLoaded      = "data:loaded"
	TypeAnalysisSummary = "analysis:summary"
	TypeHistoryDay      = "history:day"
	TypeError           = "error"
)

// DateLayout is the date format of history requests.
const DateLayout = "2006-01-02"

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SnapshotFromFeed(s live.Snapshot) SnapshotPayload {
	p := SnapshotPayload{
		Sea:     s.Sea,
		Lake:    s.Lake,
		Head:    s.Head,
		Waste:   s.Waste,
		LossCum: s.LossCum,
		Seq:     s.Seq,
	}
	if !s.UpdatedAt.IsZero() {
		p.Timestamp = s.UpdatedAt.Format(time.RFC3339)
	}
	return p
}

func ReadingFromModel(r model.Reading) SensorReadingPayload {
	return SensorReadingPayload{
		SensorID:  r.SensorID,
		Value:     r.Value,
		Unit:      r.Unit,
		Timestamp: r.Timestamp.Format(time.RFC3339),
	}
}
