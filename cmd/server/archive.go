package main

import (
	"context"
	"log"
	"time"

	"tidal_efficiency/internal/model"
)

type readingInserter interface {
	InsertReadings(ctx context.Context, readings []model.Reading) error
}

type readingAdder interface {
	AddReadings(readings []model.Reading)
}

// archiver keeps live readings in memory and copies them to the database
// from its own goroutine, so a slow database never stalls the feed.
type archiver struct {
	mem     readingAdder
	db      readingInserter
	logger  *log.Logger
	pending chan []model.Reading
}

func newArchiver(mem readingAdder, db readingInserter, logger *log.Logger, buffer int) *archiver {
	return &archiver{mem: mem, db: db, logger: logger, pending: make(chan []model.Reading, buffer)}
}

// AddReadings implements live.Recorder. Batches are dropped when the
// database falls a full buffer behind.
func (a *archiver) AddReadings(readings []model.Reading) {
	a.mem.AddReadings(readings)
	select {
	case a.pending <- readings:
	default:
		a.logger.Printf("Archive queue full, dropping %d readings", len(readings))
	}
}

// Run drains queued readings into the database until ctx is done.
func (a *archiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-a.pending:
			insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := a.db.InsertReadings(insertCtx, batch); err != nil {
				a.logger.Printf("Archiving %d readings: %v", len(batch), err)
			}
			cancel()
		}
	}
}
