package live

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tidal_efficiency/internal/metrics"
	"tidal_efficiency/internal/model"
)

// ErrRunning is returned when a second writer is started on a Feed.
var ErrRunning = errors.New("live: feed already running")

// Snapshot is the dashboard state after a device line. Values are never
// mutated once published. The JSON shape is the one /data has always served.
type Snapshot struct {
	Sea     float64 `json:"sea"`
	Lake    float64 `json:"lake"`
	Head    float64 `json:"head"`
	Waste   int     `json:"waste"`
	LossCum int     `json:"loss_cum"`

	UpdatedAt time.Time `json:"-"`
	Seq       uint64    `json:"-"`
}

// Readings expands the snapshot into one reading per channel.
func (s Snapshot) Readings() []model.Reading {
	channels := []struct {
		t model.SensorType
		v float64
	}{
		{model.SensorSeaLevel, s.Sea},
		{model.SensorLakeLevel, s.Lake},
		{model.SensorHead, s.Head},
		{model.SensorWaste, float64(s.Waste)},
	}
	readings := make([]model.Reading, 0, len(channels))
	for _, c := range channels {
		readings = append(readings, model.Reading{
			Timestamp: s.UpdatedAt,
			SensorID:  string(c.t),
			Type:      c.t,
			Value:     c.v,
			Unit:      model.SensorCatalog[c.t].Unit,
		})
	}
	return readings
}

// Recorder keeps published readings, e.g. *store.Store.
type Recorder interface {
	AddReadings(readings []model.Reading)
}

// Feed owns the live state. Exactly one goroutine, the one in Run or Replay,
// writes it; readers get immutable snapshots from Latest or a subscription.
type Feed struct {
	logger   *log.Logger
	recorder Recorder
	now      func() time.Time

	current atomic.Pointer[Snapshot]
	running atomic.Bool

	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

// NewFeed returns a feed with a zero snapshot. recorder may be nil.
func NewFeed(logger *log.Logger, recorder Recorder) *Feed {
	if logger == nil {
		logger = log.Default()
	}
	f := &Feed{
		logger:   logger,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
		subs:     make(map[chan Snapshot]struct{}),
	}
	f.current.Store(&Snapshot{})
	return f
}

// Latest returns the most recent snapshot.
func (f *Feed) Latest() Snapshot {
	return *f.current.Load()
}

// Subscribe returns a channel receiving every new snapshot and a function
// that ends the subscription. Slow subscribers miss snapshots rather than
// stall the writer.
func (f *Feed) Subscribe(buffer int) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, buffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Run reads device lines from r until ctx is done or r is exhausted. The
// caller closes r to unblock a pending read after cancellation.
func (f *Feed) Run(ctx context.Context, r io.Reader) error {
	if !f.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer f.running.Store(false)

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return ctx.Err()
				}
			}
			f.handle(line)
		}
	}
}

// Replay cycles through recorded lines at interval until ctx is done.
func (f *Feed) Replay(ctx context.Context, lines []string, interval time.Duration) error {
	if len(lines) == 0 {
		return errors.New("live: nothing to replay")
	}
	if !f.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer f.running.Store(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(lines) {
		f.handle(lines[i])
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *Feed) handle(line string) {
	if line == "" {
		return
	}
	snap, err := f.apply(line)
	if err != nil {
		metrics.ObserveLiveSample(err, nil, 0)
		f.logger.Printf("Live line %q: %v", line, err)
		return
	}
	metrics.ObserveLiveSample(nil, map[string]float64{
		string(model.SensorSeaLevel):  snap.Sea,
		string(model.SensorLakeLevel): snap.Lake,
		string(model.SensorHead):      snap.Head,
		string(model.SensorWaste):     float64(snap.Waste),
	}, float64(snap.LossCum))
}

// apply folds one line into the state and publishes the result. Only the
// writer goroutine calls it.
func (f *Feed) apply(line string) (Snapshot, error) {
	sample, err := ParseLine(line)
	if err != nil {
		return Snapshot{}, err
	}

	prev := f.Latest()
	next := prev
	if sample.HasLevels {
		next.Sea = sample.Sea
		next.Lake = sample.Lake
	}
	next.Head = sample.Head
	next.Waste = sample.Waste
	next.LossCum = prev.LossCum + sample.Waste/10
	next.UpdatedAt = f.now()
	next.Seq = prev.Seq + 1

	f.current.Store(&next)
	if f.recorder != nil {
		f.recorder.AddReadings(next.Readings())
	}
	f.publish(next)
	return next, nil
}

func (f *Feed) publish(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
