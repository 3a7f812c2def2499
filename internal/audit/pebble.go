package audit

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// PebbleSinkConfig configures an on-disk sink backed by Pebble.
type PebbleSinkConfig struct {
	Path   string
	Prefix string
	Opts   *pebble.Options
}

// PebbleSink persists events to a Pebble LSM tree, CBOR-encoded, keyed by
// a big-endian event ID so iteration order matches record order.
type PebbleSink struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
	prefix []byte
	nextID atomic.Uint64
}

// NewPebbleSink opens (or creates) the database at config.Path.
func NewPebbleSink(config PebbleSinkConfig) (*PebbleSink, error) {
	opts := config.Opts
	if opts == nil {
		opts = &pebble.Options{}
	}

	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("audit: open pebble at %s: %w", config.Path, err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "event:"
	}

	sink := &PebbleSink{db: db, prefix: []byte(prefix)}
	sink.seedNextID()
	return sink, nil
}

func (p *PebbleSink) seedNextID() {
	iter, err := p.db.NewIter(p.iterOptions())
	if err != nil {
		return
	}
	defer iter.Close()

	var max uint64
	for iter.First(); iter.Valid(); iter.Next() {
		id := binary.BigEndian.Uint64(iter.Key()[len(p.prefix):])
		if id > max {
			max = id
		}
	}
	p.nextID.Store(max)
}

func (p *PebbleSink) iterOptions() *pebble.IterOptions {
	upper := make([]byte, len(p.prefix))
	copy(upper, p.prefix)
	upper = incrementBytes(upper)
	return &pebble.IterOptions{LowerBound: p.prefix, UpperBound: upper}
}

func incrementBytes(b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return b
		}
	}
	return append(b, 0xff)
}

func (p *PebbleSink) makeKey(id uint64) []byte {
	key := make([]byte, len(p.prefix)+8)
	copy(key, p.prefix)
	binary.BigEndian.PutUint64(key[len(p.prefix):], id)
	return key
}

func (p *PebbleSink) Record(ctx context.Context, event Event) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrSinkClosed
	}

	event.ID = p.nextID.Add(1)
	data, err := cbor.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	if err := p.db.Set(p.makeKey(event.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}
	return nil
}

func (p *PebbleSink) List(ctx context.Context, limit int) ([]Event, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrSinkClosed
	}

	iter, err := p.db.NewIter(p.iterOptions())
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer iter.Close()

	var events []Event
	for iter.First(); iter.Valid(); iter.Next() {
		var event Event
		if err := cbor.Unmarshal(iter.Value(), &event); err != nil {
			return nil, fmt.Errorf("audit: decode event: %w", err)
		}
		events = append(events, event)
	}

	if limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func (p *PebbleSink) Count(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrSinkClosed
	}

	iter, err := p.db.NewIter(p.iterOptions())
	if err != nil {
		return 0, fmt.Errorf("audit: count events: %w", err)
	}
	defer iter.Close()

	var count int64
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	return count, nil
}

func (p *PebbleSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrSinkClosed
	}

	p.closed = true
	return p.db.Close()
}
