package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/live"
	"tidal_efficiency/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SnapshotSource provides the current live state, e.g. *live.Feed.
type SnapshotSource interface {
	Latest() live.Snapshot
}

// History provides recorded readings, e.g. *store.Store.
type History interface {
	Sensors() []model.Sensor
	Day(date time.Time) []model.Reading
}

// SummarySource provides the last analysis summary, if any.
type SummarySource interface {
	Summary() (analysis.Summary, bool)
}

// Handler upgrades dashboard connections and answers their requests.
type Handler struct {
	hub      *Hub
	feed     SnapshotSource
	history  History
	analysis SummarySource
	loc      *time.Location
}

// NewHandler wires a handler. analysis may be nil. History days are cut in
// loc.
func NewHandler(hub *Hub, feed SnapshotSource, history History, analysis SummarySource, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{hub: hub, feed: feed, history: history, analysis: analysis, loc: loc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	// Initial messages are queued before the client joins the hub so they
	// precede any broadcast.
	h.sendDataLoaded(client)
	h.sendSnapshot(client)
	h.sendSummary(client)

	h.hub.Register(client)
	go client.writePump()

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		h.sendError(c, "invalid message")
		return
	}

	switch env.Type {
	case TypeLiveRequest:
		h.sendSnapshot(c)

	case TypeHistoryRequest:
		var p HistoryRequestPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid history:request payload: %v", err)
			h.sendError(c, "invalid history request")
			return
		}
		date, err := time.ParseInLocation(DateLayout, p.Date, h.loc)
		if err != nil {
			log.Printf("Invalid history date: %v", err)
			h.sendError(c, "invalid date "+p.Date)
			return
		}
		h.sendHistory(c, date)

	default:
		log.Printf("Unknown message type: %s", env.Type)
		h.sendError(c, "unknown message type "+env.Type)
	}
}

func (h *Handler) dataLoadedMessage() ([]byte, error) {
	modelSensors := h.history.Sensors()
	sensors := make([]SensorInfo, 0, len(modelSensors))
	for _, s := range modelSensors {
		sensors = append(sensors, SensorInfo{
			ID:   s.ID,
			Name: s.Name,
			Type: string(s.Type),
			Unit: s.Unit,
		})
	}
	return NewEnvelope(TypeDataLoaded, DataLoadedPayload{Sensors: sensors})
}

func (h *Handler) sendDataLoaded(c *Client) {
	msg, err := h.dataLoadedMessage()
	if err != nil {
		log.Printf("Error creating data:loaded message: %v", err)
		return
	}
	send(c, msg)
}

func (h *Handler) sendSnapshot(c *Client) {
	msg, err := NewEnvelope(TypeLiveSnapshot, SnapshotFromFeed(h.feed.Latest()))
	if err != nil {
		return
	}
	send(c, msg)
}

func (h *Handler) sendSummary(c *Client) {
	if h.analysis == nil {
		return
	}
	s, ok := h.analysis.Summary()
	if !ok {
		return
	}
	msg, err := NewEnvelope(TypeAnalysisSummary, s)
	if err != nil {
		return
	}
	send(c, msg)
}

func (h *Handler) sendHistory(c *Client, date time.Time) {
	readings := h.history.Day(date)
	payload := HistoryPayload{
		Date:     date.Format(DateLayout),
		Readings: make([]SensorReadingPayload, 0, len(readings)),
	}
	for _, r := range readings {
		payload.Readings = append(payload.Readings, ReadingFromModel(r))
	}
	msg, err := NewEnvelope(TypeHistoryDay, payload)
	if err != nil {
		log.Printf("Error creating history:day message: %v", err)
		return
	}
	send(c, msg)
}

func (h *Handler) sendError(c *Client, message string) {
	msg, err := NewEnvelope(TypeError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	send(c, msg)
}

func send(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}
