// Package observability aggregates relay counters for periodic reporting.
package observability

import "sync/atomic"

// Stats is a point-in-time snapshot of the relay counters.
type Stats struct {
	MessagesPosted    uint64
	Deliveries        uint64
	DeliveriesDropped uint64
	ProviderCalls     uint64
	HistoryReplays    uint64
}

// Monitor is a lock-free counter bag shared across workers.
// The zero value is ready to use.
type Monitor struct {
	messagesPosted    atomic.Uint64
	deliveries        atomic.Uint64
	deliveriesDropped atomic.Uint64
	providerCalls     atomic.Uint64
	historyReplays    atomic.Uint64
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) MessagePosted()   { m.messagesPosted.Add(1) }
func (m *Monitor) Delivered()       { m.deliveries.Add(1) }
func (m *Monitor) DeliveryDropped() { m.deliveriesDropped.Add(1) }
func (m *Monitor) ProviderCall()    { m.providerCalls.Add(1) }
func (m *Monitor) HistoryReplay()   { m.historyReplays.Add(1) }

func (m *Monitor) Snapshot() Stats {
	return Stats{
		MessagesPosted:    m.messagesPosted.Load(),
		Deliveries:        m.deliveries.Load(),
		DeliveriesDropped: m.deliveriesDropped.Load(),
		ProviderCalls:     m.providerCalls.Load(),
		HistoryReplays:    m.historyReplays.Load(),
	}
}
