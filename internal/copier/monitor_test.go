package copier

import (
	"errors"
	"testing"
	"time"

	"copier_bot/internal/models"
	"copier_bot/internal/modules/config"
)

func monitorConfig(poll, timeout time.Duration) *config.Config {
	cfg := &config.Config{}
	cfg.MonitorPollInterval = poll
	cfg.MonitorTimeout = timeout
	return cfg
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestProgressPct(t *testing.T) {
	tests := []struct {
		name    string
		action  models.Action
		entry   float64
		target  float64
		current float64
		want    float64
	}{
		{"buy halfway", models.ActionBuy, 100, 110, 105, 50},
		{"buy at target", models.ActionBuy, 100, 110, 110, 100},
		{"buy underwater", models.ActionBuy, 100, 110, 95, -50},
		{"sell halfway", models.ActionSell, 110, 100, 105, 50},
		{"sell at target", models.ActionSell, 110, 100, 100, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := progressPct(tc.action, tc.entry, tc.target, tc.current)
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMonitorBreakevenOnce(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 100)
	api.setCurrentPrice("acc-1", "pos-1", 105)

	sup := NewSupervisor(monitorConfig(5*time.Millisecond, time.Minute), api, nil, nil, &fakeNotifier{})
	defer sup.Stop()

	sup.Spawn(Task{
		SubscriberID: 77,
		AccountID:    "acc-1",
		PositionID:   "pos-1",
		Symbol:       "XAUUSD",
		Action:       models.ActionBuy,
		Entry:        100,
		Target1:      110,
		TriggerPct:   50,
	})

	waitFor(t, func() bool { return api.modifyCount() == 1 }, "expected breakeven modify")
	if api.modifies[0].stopLoss != 100 {
		t.Fatalf("stop must move to entry, got %v", api.modifies[0].stopLoss)
	}

	// задача one-shot: дальнейший рост цены ничего не двигает
	api.setCurrentPrice("acc-1", "pos-1", 108)
	waitFor(t, func() bool { return sup.Len() == 0 }, "task must terminate after breakeven")
	time.Sleep(30 * time.Millisecond)
	if api.modifyCount() != 1 {
		t.Fatalf("expected exactly one modify, got %d", api.modifyCount())
	}
}

func TestMonitorBelowTriggerKeepsWaiting(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 100)
	api.setCurrentPrice("acc-1", "pos-1", 102)

	sup := NewSupervisor(monitorConfig(5*time.Millisecond, time.Minute), api, nil, nil, &fakeNotifier{})
	defer sup.Stop()

	sup.Spawn(Task{
		AccountID:  "acc-1",
		PositionID: "pos-1",
		Symbol:     "XAUUSD",
		Action:     models.ActionBuy,
		Entry:      100,
		Target1:    110,
		TriggerPct: 50,
	})

	time.Sleep(50 * time.Millisecond)
	if api.modifyCount() != 0 {
		t.Fatalf("20%% progress must not trigger breakeven, got %d modifies", api.modifyCount())
	}
	if sup.Len() != 1 {
		t.Fatal("task must keep polling below the trigger")
	}
}

func TestMonitorPartialCloseAtTarget(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 100)
	api.setCurrentPrice("acc-1", "pos-1", 111)

	sup := NewSupervisor(monitorConfig(5*time.Millisecond, time.Minute), api, nil, nil, &fakeNotifier{})
	defer sup.Stop()

	sup.Spawn(Task{
		AccountID:    "acc-1",
		PositionID:   "pos-1",
		Symbol:       "XAUUSD",
		Action:       models.ActionBuy,
		Entry:        100,
		Target1:      110,
		TriggerPct:   50,
		PartialAtTP1: true,
	})

	waitFor(t, func() bool { return api.partialCount() == 1 }, "expected partial close at target")
	if got := api.partials[0].volume; got != 0.1 {
		t.Fatalf("expected half the volume, got %v", got)
	}
	if api.modifyCount() != 1 {
		t.Fatalf("breakeven and partial close happen in the same step, got %d modifies", api.modifyCount())
	}
}

func TestMonitorTerminatesWhenPositionGone(t *testing.T) {
	api := newFakeTradingAPI()

	sup := NewSupervisor(monitorConfig(5*time.Millisecond, time.Minute), api, nil, nil, &fakeNotifier{})
	defer sup.Stop()

	sup.Spawn(Task{
		AccountID:  "acc-1",
		PositionID: "pos-missing",
		Symbol:     "XAUUSD",
		Action:     models.ActionBuy,
		Entry:      100,
		Target1:    110,
		TriggerPct: 50,
	})

	waitFor(t, func() bool { return sup.Len() == 0 }, "task must terminate for a missing position")
	if api.modifyCount() != 0 {
		t.Fatal("missing position must not be modified")
	}
}

func TestMonitorAbsoluteTimeout(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 100)
	api.setCurrentPrice("acc-1", "pos-1", 100)

	sup := NewSupervisor(monitorConfig(5*time.Millisecond, 40*time.Millisecond), api, nil, nil, &fakeNotifier{})
	defer sup.Stop()

	sup.Spawn(Task{
		AccountID:  "acc-1",
		PositionID: "pos-1",
		Symbol:     "XAUUSD",
		Action:     models.ActionBuy,
		Entry:      100,
		Target1:    110,
		TriggerPct: 50,
	})

	waitFor(t, func() bool { return sup.Len() == 0 }, "task must self-cancel on timeout")
}

func TestMonitorRetriesAfterPollError(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 100)
	api.setCurrentPrice("acc-1", "pos-1", 105)
	api.setListError("acc-1", errors.New("gateway timeout"))

	sup := NewSupervisor(monitorConfig(5*time.Millisecond, time.Minute), api, nil, nil, &fakeNotifier{})
	defer sup.Stop()

	sup.Spawn(Task{
		SubscriberID: 77,
		AccountID:    "acc-1",
		PositionID:   "pos-1",
		Symbol:       "XAUUSD",
		Action:       models.ActionBuy,
		Entry:        100,
		Target1:      110,
		TriggerPct:   50,
	})

	// пока опрос падает, задача жива и ничего не трогает
	time.Sleep(30 * time.Millisecond)
	if api.modifyCount() != 0 {
		t.Fatal("no modify expected while polling fails")
	}
	if sup.Len() != 1 {
		t.Fatal("task must survive poll errors")
	}

	api.setListError("acc-1", nil)
	waitFor(t, func() bool { return api.modifyCount() == 1 }, "expected breakeven after the poll recovers")
}

func TestMonitorDuplicateSpawnIsNoop(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 100)

	sup := NewSupervisor(monitorConfig(time.Hour, time.Hour), api, nil, nil, &fakeNotifier{})
	defer sup.Stop()

	task := Task{AccountID: "acc-1", PositionID: "pos-1", Symbol: "XAUUSD", Action: models.ActionBuy, Entry: 100, Target1: 110, TriggerPct: 50}
	sup.Spawn(task)
	sup.Spawn(task)

	if sup.Len() != 1 {
		t.Fatalf("duplicate spawn must be a no-op, got %d tasks", sup.Len())
	}
}
