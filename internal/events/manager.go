package events

import (
	"bytes"
	"container/heap"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ServiceName is the event manager's name in the service locator.
const ServiceName = "event_manager"

// ErrEndOfSimulation signals normal termination of the event loop: the queue
// is drained and the next market event lies beyond the configured end time.
var ErrEndOfSimulation = errors.New("end of simulation")

// Handler processes one dispatched event. An error aborts the current step
// and surfaces to the caller of Step; the kernel never retries.
type Handler func(Event) error

// entry is a queued (time, event) pair.
type entry struct {
	at time.Time
	e  Event
}

// entryHeap is a min-heap of entries ordered by (time, event id). The id
// tie-break makes co-timed dispatch order deterministic but independent of
// insertion order.
type entryHeap []entry

func (h entryHeap) Len() int      { return len(h) }
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h entryHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	return bytes.Compare(h[i].e.ID[:], h[j].e.ID[:]) < 0
}

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = entry{}
	*h = old[:n-1]
	return item
}

// Manager owns the virtual clock, the subscription table, and the event
// queue, and merges scheduled events with generated market events. It is
// the single thread of control in a simulation: handlers run to completion,
// one event at a time.
type Manager struct {
	logger      *zap.Logger
	current     time.Time
	end         time.Time
	subscribers map[Type][]Handler
	queue       entryHeap
	market      *MarketEvents
	observers   []func(Event)
	dispatched  uint64
}

// NewManager creates an event manager spanning [start, end]. The market
// generator supplies session-boundary events; start becomes the initial
// virtual time.
func NewManager(logger *zap.Logger, start, end time.Time, market *MarketEvents) *Manager {
	m := &Manager{
		logger:      logger,
		current:     start,
		end:         end,
		subscribers: make(map[Type][]Handler),
		market:      market,
	}
	heap.Init(&m.queue)
	return m
}

// CurrentTime returns the virtual clock. It never moves backward, and during
// dispatch it equals the dispatched event's own timestamp.
func (m *Manager) CurrentTime() time.Time {
	return m.current
}

// EndTime returns the simulation end bound.
func (m *Manager) EndTime() time.Time {
	return m.end
}

// EventsDispatched returns the number of events published so far.
func (m *Manager) EventsDispatched() uint64 {
	return m.dispatched
}

// Pending returns the number of scheduled events still queued.
func (m *Manager) Pending() int {
	return m.queue.Len()
}

// Subscribe appends a handler to the given event kind. Handlers for one kind
// fire in subscription order.
func (m *Manager) Subscribe(kind Type, handler Handler) {
	m.logger.Debug("Subscription added",
		zap.String("eventType", string(kind)),
		zap.Time("simulationTime", m.current),
	)
	m.subscribers[kind] = append(m.subscribers[kind], handler)
}

// OnDispatch registers an observer invoked for every dispatched event, after
// the clock advances and before handlers run. Observers must not schedule.
func (m *Manager) OnDispatch(fn func(Event)) {
	m.observers = append(m.observers, fn)
}

// Schedule assigns event.Time = current + delay and queues the event. A zero
// delay is the idiomatic "right now, after the current handler returns".
func (m *Manager) Schedule(e Event, delay time.Duration) error {
	if delay < 0 {
		return fmt.Errorf("schedule %s: negative delay %s", e.Type, delay)
	}
	e.Time = m.current.Add(delay)
	heap.Push(&m.queue, entry{at: e.Time, e: e})
	m.logger.Debug("Event scheduled",
		zap.String("eventType", string(e.Type)),
		zap.Time("eventTime", e.Time),
		zap.Time("simulationTime", m.current),
	)
	return nil
}

// Step advances the simulation by exactly one event and returns it.
//
// The next market event m is computed first (its time is strictly after the
// clock). Queued events at or before m.Time are drained first; when the
// queue cannot supply the next event and m lies beyond the end time, Step
// returns ErrEndOfSimulation. A handler error aborts the step after the
// clock has advanced and surfaces alongside the offending event.
func (m *Manager) Step() (Event, error) {
	next := m.market.NextMarketEvent(m.current)

	if m.queue.Len() > 0 && !m.queue[0].at.After(next.Time) {
		item := heap.Pop(&m.queue).(entry)
		m.advance(item.at)
		return item.e, m.publish(item.e)
	}

	if next.Time.After(m.end) {
		return Event{}, ErrEndOfSimulation
	}

	m.advance(next.Time)
	return next, m.publish(next)
}

// advance moves the virtual clock forward.
func (m *Manager) advance(to time.Time) {
	if !m.current.Equal(to) {
		m.logger.Debug("Advancing simulation time",
			zap.Time("from", m.current),
			zap.Time("to", to),
		)
		m.current = to
	}
}

// publish dispatches an event to its subscribers in subscription order.
func (m *Manager) publish(e Event) error {
	m.dispatched++
	m.logger.Debug("Publishing event",
		zap.String("eventType", string(e.Type)),
		zap.Time("simulationTime", m.current),
	)
	for _, fn := range m.observers {
		fn(e)
	}
	for _, handler := range m.subscribers[e.Type] {
		if err := handler(e); err != nil {
			return fmt.Errorf("handler for %s at %s: %w", e.Type, e.Time, err)
		}
	}
	return nil
}
