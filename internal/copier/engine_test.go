package copier

import (
	"context"
	"errors"
	"testing"
	"time"

	"copier_bot/internal/models"
	"copier_bot/internal/modules/config"
	metaapi "copier_bot/internal/modules/metaapi/service"
	"copier_bot/internal/registry"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.OrderDelay = 0
	cfg.MonitorPollInterval = time.Hour // в тестах движка тикать не должно
	cfg.MonitorTimeout = time.Hour
	return cfg
}

func newTestEngine(api TradingAPI) (*Engine, *registry.Store, *Supervisor) {
	cfg := testConfig()
	reg := registry.New(nil)
	n := &fakeNotifier{}
	sup := NewSupervisor(cfg, api, nil, nil, n)
	return NewEngine(cfg, api, reg, n, sup), reg, sup
}

func TestExecuteNoAccounts(t *testing.T) {
	api := newFakeTradingAPI()
	eng, _, sup := newTestEngine(api)
	defer sup.Stop()

	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", Immediate: true}
	report := eng.Execute(context.Background(), models.Subscriber{ID: 1}, 10, sig)

	if !report.NoTargets {
		t.Fatal("expected NoTargets report")
	}
	if api.orderCount() != 0 {
		t.Fatalf("expected no orders, got %d", api.orderCount())
	}
}

func TestExecuteFanOutPartialFailure(t *testing.T) {
	api := newFakeTradingAPI()
	api.failPlace["acc-2"] = errors.New("boom")
	eng, _, sup := newTestEngine(api)
	defer sup.Stop()

	sub := testSubscriber(
		models.Account{ID: "acc-1", Login: "111"},
		models.Account{ID: "acc-2", Login: "222"},
		models.Account{ID: "acc-3", Login: "333"},
	)
	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", Immediate: true, StopLoss: 2045, TP1: 2060}

	report := eng.Execute(context.Background(), sub, 10, sig)

	if len(report.Accounts) != 3 {
		t.Fatalf("expected 3 account results, got %d", len(report.Accounts))
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].AccountID != "acc-2" {
		t.Fatalf("expected exactly acc-2 to fail, got %+v", failed)
	}
	if report.TotalOrders() != 2 {
		t.Fatalf("expected 2 successful orders, got %d", report.TotalOrders())
	}
	if api.orderCount() != 2 {
		t.Fatalf("expected 2 orders placed, got %d", api.orderCount())
	}
}

func TestExecuteOrderCountAndVolume(t *testing.T) {
	api := newFakeTradingAPI()
	eng, _, sup := newTestEngine(api)
	defer sup.Stop()

	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})
	sub.Settings.NumberOfOrders = 3
	sub.Settings.BaseLotSize = 0.02
	sub.Settings.LotMultiplier = 2
	sub.Settings.MoveToBreakeven = false

	sig := models.Signal{Action: models.ActionSell, Symbol: "BTCUSD", Immediate: true}
	report := eng.Execute(context.Background(), sub, 10, sig)

	if report.TotalOrders() != 3 {
		t.Fatalf("expected 3 orders, got %d", report.TotalOrders())
	}
	want := 3 * 0.02 * 2
	got := report.Accounts[0].Volume
	if got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("expected volume %v, got %v", want, got)
	}
	for _, o := range api.orders {
		if o.req.ActionType != metaapi.ActionSell {
			t.Fatalf("expected market sell, got %s", o.req.ActionType)
		}
	}
}

func TestExecuteRegistersPositions(t *testing.T) {
	api := newFakeTradingAPI()
	eng, reg, sup := newTestEngine(api)
	defer sup.Stop()

	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})
	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", Immediate: true, TP1: 2060}

	eng.Execute(context.Background(), sub, 10, sig)

	key := registry.Key{SubscriberID: sub.ID, ChannelID: 10, Symbol: "XAUUSD"}
	entry, ok := reg.Get(key)
	if !ok {
		t.Fatal("expected registry entry")
	}
	if len(entry.Positions) != 1 {
		t.Fatalf("expected 1 position ref, got %d", len(entry.Positions))
	}
	if entry.Positions[0].AccountID != "acc-1" {
		t.Fatalf("unexpected ref %+v", entry.Positions[0])
	}
}

func TestExecuteReplaceDiscardsOldRefs(t *testing.T) {
	api := newFakeTradingAPI()
	eng, reg, sup := newTestEngine(api)
	defer sup.Stop()

	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})
	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", Immediate: true, TP1: 2060}

	eng.Execute(context.Background(), sub, 10, sig)
	eng.Execute(context.Background(), sub, 10, sig)

	key := registry.Key{SubscriberID: sub.ID, ChannelID: 10, Symbol: "XAUUSD"}
	entry, _ := reg.Get(key)
	if len(entry.Positions) != 1 {
		t.Fatalf("replace must discard prior refs, got %d", len(entry.Positions))
	}
	if entry.Positions[0].PositionID != "pos-2" {
		t.Fatalf("expected only the newer position, got %+v", entry.Positions)
	}
}

func TestBuildTradeRequest(t *testing.T) {
	base := models.CopySettings{BaseLotSize: 0.1, LotMultiplier: 1, CopyStopLoss: true, CopyTakeProfit: true}

	tests := []struct {
		name string
		sig  models.Signal
		set  models.CopySettings
		want metaapi.TradeRequest
	}{
		{
			name: "market buy copies sl/tp",
			sig:  models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", Immediate: true, StopLoss: 2045, TP1: 2060},
			set:  base,
			want: metaapi.TradeRequest{ActionType: metaapi.ActionBuy, Symbol: "XAUUSD", Volume: 0.1, StopLoss: 2045, TakeProfit: 2060},
		},
		{
			name: "numeric entry becomes limit",
			sig:  models.Signal{Action: models.ActionSell, Symbol: "US30", Entry: 35000},
			set:  base,
			want: metaapi.TradeRequest{ActionType: metaapi.ActionSellLimit, Symbol: "US30", Volume: 0.1, OpenPrice: 35000},
		},
		{
			name: "sl/tp suppressed by settings",
			sig:  models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", Immediate: true, StopLoss: 2045, TP1: 2060},
			set:  models.CopySettings{BaseLotSize: 0.1, LotMultiplier: 1},
			want: metaapi.TradeRequest{ActionType: metaapi.ActionBuy, Symbol: "XAUUSD", Volume: 0.1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := buildTradeRequest(tc.sig, tc.set)
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
