package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/airlink-io/airlink/internal/drone"
	"github.com/airlink-io/airlink/internal/pkg/metrics"
	"github.com/airlink-io/airlink/pkg/log"
)

const recvSlice = 1 * time.Second

// Listener continuously decodes unsolicited telemetry datagrams and
// republishes the records to subscribers. Delivery is non-blocking: a slow
// subscriber misses records instead of stalling ingestion.
type Listener struct {
	tr   *drone.Transport
	link *drone.Channel
	log  log.Logger

	lastMu sync.RWMutex
	last   *Record

	subMu sync.Mutex
	subs  []chan Record
}

// NewListener creates a Listener reading from tr. Every decoded record also
// refreshes the channel's liveness clock.
func NewListener(tr *drone.Transport, link *drone.Channel, logger log.Logger) *Listener {
	if logger == nil {
		logger = log.Std().WithName("telemetry")
	}
	return &Listener{
		tr:   tr,
		link: link,
		log:  logger,
	}
}

// Subscribe returns a buffered stream of decoded records.
func (l *Listener) Subscribe(buffer int) <-chan Record {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Record, buffer)
	l.subMu.Lock()
	l.subs = append(l.subs, ch)
	l.subMu.Unlock()
	return ch
}

// Last returns the most recently decoded record, if any.
func (l *Listener) Last() (Record, bool) {
	l.lastMu.RLock()
	defer l.lastMu.RUnlock()
	if l.last == nil {
		return Record{}, false
	}
	return *l.last, true
}

// Run ingests datagrams until ctx is cancelled or the transport closes.
// Transient errors are logged and the loop continues; one bad packet must
// never end telemetry ingestion.
func (l *Listener) Run(ctx context.Context) error {
	l.log.Info("Telemetry listener started")

	for {
		select {
		case <-ctx.Done():
			l.log.Info("Telemetry listener stopped")
			return nil
		default:
		}

		line, err := l.tr.RecvState(recvSlice)
		if errors.Is(err, drone.ErrTimeout) {
			continue
		}
		if errors.Is(err, drone.ErrClosed) {
			l.log.Info("Telemetry socket closed, listener exiting")
			return nil
		}
		if err != nil {
			l.log.Error(err, "Telemetry receive failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if line == "" {
			continue
		}

		rec := Decode(line)
		l.link.TouchTelemetry()
		metrics.TelemetryRecordsTotal.Inc()

		l.lastMu.Lock()
		l.last = &rec
		l.lastMu.Unlock()

		l.publish(rec)
	}
}

func (l *Listener) publish(rec Record) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}
