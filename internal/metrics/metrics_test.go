package metrics

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecordRequest(t *testing.T) {
	m := New()

	m.RecordRequest(true)
	m.RecordRequest(true)
	m.RecordRequest(false)

	snap := m.Snapshot()
	requests := snap["requests"].(map[string]int64)
	if requests["total"] != 3 {
		t.Errorf("expected 3 total, got %d", requests["total"])
	}
	if requests["success"] != 2 {
		t.Errorf("expected 2 success, got %d", requests["success"])
	}
	if requests["failed"] != 1 {
		t.Errorf("expected 1 failed, got %d", requests["failed"])
	}
}

func TestRecordUsage(t *testing.T) {
	m := New()

	m.RecordUsage(1000, 500)
	m.RecordUsage(200, 100)

	snap := m.Snapshot()
	usage := snap["usage"].(map[string]int64)
	if usage["input_units"] != 1200 {
		t.Errorf("expected 1200 input units, got %d", usage["input_units"])
	}
	if usage["output_units"] != 600 {
		t.Errorf("expected 600 output units, got %d", usage["output_units"])
	}
}

func TestRecordActionCall(t *testing.T) {
	m := New()

	m.RecordActionCall("greeting", true)
	m.RecordActionCall("greeting", false)
	m.RecordActionCall("get_weather", true)

	snap := m.Snapshot()
	calls := snap["action_calls"].(map[string]int64)
	if calls["total"] != 3 || calls["success"] != 2 || calls["failed"] != 1 {
		t.Errorf("unexpected action call counters %v", calls)
	}

	perAction := snap["actions"].(map[string]int64)
	if perAction["greeting"] != 2 {
		t.Errorf("expected 2 greeting calls, got %d", perAction["greeting"])
	}
	if perAction["get_weather"] != 1 {
		t.Errorf("expected 1 get_weather call, got %d", perAction["get_weather"])
	}
}

func TestRecordProviderRequest(t *testing.T) {
	m := New()

	m.RecordProviderRequest("openai")
	m.RecordProviderRequest("openai")
	m.RecordProviderRequest("ollama")

	snap := m.Snapshot()
	providers := snap["provider_requests"].(map[string]int64)
	if providers["openai"] != 2 {
		t.Errorf("expected 2 openai requests, got %d", providers["openai"])
	}
	if providers["ollama"] != 1 {
		t.Errorf("expected 1 ollama request, got %d", providers["ollama"])
	}
}

func TestRecordCost(t *testing.T) {
	m := New()

	m.RecordCost(decimal.RequireFromString("0.025"))
	m.RecordCost(decimal.RequireFromString("0.000005"))

	if !m.TotalCost().Equal(decimal.RequireFromString("0.025005")) {
		t.Errorf("expected total 0.025005, got %s", m.TotalCost())
	}
}

func TestConcurrentRecording(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordRequest(true)
				m.RecordUsage(1, 1)
				m.RecordActionCall("a", true)
				m.RecordProviderRequest("p")
				m.RecordCost(decimal.RequireFromString("0.000001"))
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap["requests"].(map[string]int64)["total"] != 1000 {
		t.Errorf("expected 1000 requests, got %d", snap["requests"].(map[string]int64)["total"])
	}
	if !m.TotalCost().Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("expected total 0.001, got %s", m.TotalCost())
	}
}

func TestDefaultSingleton(t *testing.T) {
	if Default() != Default() {
		t.Error("expected Default to return the same instance")
	}
}
