package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Metrics tracks request, usage and action counters for the process.
type Metrics struct {
	startTime time.Time

	requestsTotal   atomic.Int64
	requestsSuccess atomic.Int64
	requestsFailed  atomic.Int64

	unitsInput  atomic.Int64
	unitsOutput atomic.Int64

	actionCallsTotal   atomic.Int64
	actionCallsSuccess atomic.Int64
	actionCallsFailed  atomic.Int64

	providerRequests map[string]*atomic.Int64
	providerLock     sync.Mutex

	actionCalls map[string]*atomic.Int64
	actionLock  sync.Mutex

	totalCost decimal.Decimal
	costLock  sync.Mutex
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	return &Metrics{
		startTime:        time.Now(),
		providerRequests: make(map[string]*atomic.Int64),
		actionCalls:      make(map[string]*atomic.Int64),
		totalCost:        decimal.Zero,
	}
}

func (m *Metrics) RecordRequest(success bool) {
	m.requestsTotal.Add(1)
	if success {
		m.requestsSuccess.Add(1)
	} else {
		m.requestsFailed.Add(1)
	}
}

func (m *Metrics) RecordUsage(inputUnits, outputUnits int64) {
	m.unitsInput.Add(inputUnits)
	m.unitsOutput.Add(outputUnits)
}

func (m *Metrics) RecordActionCall(name string, success bool) {
	m.actionCallsTotal.Add(1)
	if success {
		m.actionCallsSuccess.Add(1)
	} else {
		m.actionCallsFailed.Add(1)
	}

	m.actionLock.Lock()
	defer m.actionLock.Unlock()
	if m.actionCalls[name] == nil {
		m.actionCalls[name] = &atomic.Int64{}
	}
	m.actionCalls[name].Add(1)
}

func (m *Metrics) RecordProviderRequest(provider string) {
	m.providerLock.Lock()
	defer m.providerLock.Unlock()
	if m.providerRequests[provider] == nil {
		m.providerRequests[provider] = &atomic.Int64{}
	}
	m.providerRequests[provider].Add(1)
}

func (m *Metrics) RecordCost(cost decimal.Decimal) {
	m.costLock.Lock()
	m.totalCost = m.totalCost.Add(cost)
	m.costLock.Unlock()
}

// TotalCost returns the cost accumulated since startup.
func (m *Metrics) TotalCost() decimal.Decimal {
	m.costLock.Lock()
	defer m.costLock.Unlock()
	return m.totalCost
}

// Snapshot returns the current counters for the metrics endpoint and the
// periodic summary log.
func (m *Metrics) Snapshot() map[string]interface{} {
	providers := make(map[string]int64)
	m.providerLock.Lock()
	for name, counter := range m.providerRequests {
		providers[name] = counter.Load()
	}
	m.providerLock.Unlock()

	actions := make(map[string]int64)
	m.actionLock.Lock()
	for name, counter := range m.actionCalls {
		actions[name] = counter.Load()
	}
	m.actionLock.Unlock()

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"requests": map[string]int64{
			"total":   m.requestsTotal.Load(),
			"success": m.requestsSuccess.Load(),
			"failed":  m.requestsFailed.Load(),
		},
		"usage": map[string]int64{
			"input_units":  m.unitsInput.Load(),
			"output_units": m.unitsOutput.Load(),
		},
		"action_calls": map[string]int64{
			"total":   m.actionCallsTotal.Load(),
			"success": m.actionCallsSuccess.Load(),
			"failed":  m.actionCallsFailed.Load(),
		},
		"provider_requests": providers,
		"actions":           actions,
		"total_cost":        m.TotalCost().String(),
	}
}
