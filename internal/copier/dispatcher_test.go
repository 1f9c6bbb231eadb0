package copier

import (
	"context"
	"testing"

	"copier_bot/internal/models"
	metaapi "copier_bot/internal/modules/metaapi/service"
	"copier_bot/internal/registry"
)

func seedPosition(api *fakeTradingAPI, accountID, positionID, symbol string, volume, openPrice float64) {
	api.positions[accountID] = append(api.positions[accountID], metaapi.Position{
		ID:        positionID,
		Symbol:    symbol,
		Type:      "POSITION_TYPE_BUY",
		Volume:    volume,
		OpenPrice: openPrice,
	})
}

func TestDispatchRegistryMiss(t *testing.T) {
	api := newFakeTradingAPI()
	reg := registry.New(nil)
	d := NewDispatcher(api, reg, &fakeNotifier{})

	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", IsUpdate: true, RawText: "XAUUSD TP1 HIT"}
	report := d.Dispatch(context.Background(), testSubscriber(), 10, sig)

	if !report.NothingToUpdate {
		t.Fatal("expected nothing-to-update on registry miss")
	}
	if api.partialCount() != 0 || api.modifyCount() != 0 {
		t.Fatal("registry miss must not touch the gateway")
	}
}

func TestDispatchTPHit(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 2050)

	reg := registry.New(nil)
	key := registry.Key{SubscriberID: 77, ChannelID: 10, Symbol: "XAUUSD"}
	ticket := reg.Put(key, models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD"})
	reg.AttachPosition(ticket, models.PositionRef{AccountID: "acc-1", PositionID: "pos-1", Symbol: "XAUUSD"})

	d := NewDispatcher(api, reg, &fakeNotifier{})
	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})

	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", IsUpdate: true, RawText: "GOLD BUY TP1 HIT"}
	report := d.Dispatch(context.Background(), sub, 10, sig)

	if api.partialCount() != 1 {
		t.Fatalf("expected exactly one partial close, got %d", api.partialCount())
	}
	if got := api.partials[0].volume; got != 0.1 {
		t.Fatalf("expected half the volume (0.1), got %v", got)
	}
	if api.modifyCount() != 1 {
		t.Fatalf("expected one breakeven modify, got %d", api.modifyCount())
	}
	if api.modifies[0].stopLoss != 2050 {
		t.Fatalf("breakeven must use the position open price, got %v", api.modifies[0].stopLoss)
	}
	if report.Applied() != 2 {
		t.Fatalf("expected 2 applied updates, got %d", report.Applied())
	}
}

func TestDispatchTPHitRespectsSettings(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "XAUUSD", 0.2, 2050)

	reg := registry.New(nil)
	key := registry.Key{SubscriberID: 77, ChannelID: 10, Symbol: "XAUUSD"}
	ticket := reg.Put(key, models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD"})
	reg.AttachPosition(ticket, models.PositionRef{AccountID: "acc-1", PositionID: "pos-1", Symbol: "XAUUSD"})

	d := NewDispatcher(api, reg, &fakeNotifier{})
	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})
	sub.Settings.AutoCloseAtTP1 = false
	sub.Settings.MoveToBreakeven = false

	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", IsUpdate: true, RawText: "TP1 HIT BUY GOLD"}
	report := d.Dispatch(context.Background(), sub, 10, sig)

	if api.partialCount() != 0 || api.modifyCount() != 0 {
		t.Fatal("disabled settings must suppress both mutations")
	}
	if !report.NothingToUpdate {
		t.Fatal("expected nothing-to-update when both knobs are off")
	}
}

func TestDispatchClose(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-1", "US30", 0.5, 35000)

	reg := registry.New(nil)
	key := registry.Key{SubscriberID: 77, ChannelID: 10, Symbol: "US30"}
	ticket := reg.Put(key, models.Signal{Action: models.ActionSell, Symbol: "US30"})
	reg.AttachPosition(ticket, models.PositionRef{AccountID: "acc-1", PositionID: "pos-1", Symbol: "US30"})

	d := NewDispatcher(api, reg, &fakeNotifier{})
	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})

	sig := models.Signal{Action: models.ActionSell, Symbol: "US30", IsUpdate: true, RawText: "DOW SELL CLOSE NOW"}
	d.Dispatch(context.Background(), sub, 10, sig)

	if len(api.closes) != 1 || api.closes[0].positionID != "pos-1" {
		t.Fatalf("expected pos-1 fully closed, got %+v", api.closes)
	}
}

func TestDispatchOnlyActsOnRefsAfterReplace(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-old", "XAUUSD", 0.2, 2040)
	seedPosition(api, "acc-1", "pos-new", "XAUUSD", 0.2, 2050)

	reg := registry.New(nil)
	key := registry.Key{SubscriberID: 77, ChannelID: 10, Symbol: "XAUUSD"}

	oldTicket := reg.Put(key, models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD"})
	reg.AttachPosition(oldTicket, models.PositionRef{AccountID: "acc-1", PositionID: "pos-old", Symbol: "XAUUSD"})

	// новый сигнал по тому же ключу вытесняет старые ссылки
	newTicket := reg.Put(key, models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD"})
	reg.AttachPosition(newTicket, models.PositionRef{AccountID: "acc-1", PositionID: "pos-new", Symbol: "XAUUSD"})

	d := NewDispatcher(api, reg, &fakeNotifier{})
	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})
	sub.Settings.MoveToBreakeven = false

	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", IsUpdate: true, RawText: "BUY GOLD TP1 HIT"}
	d.Dispatch(context.Background(), sub, 10, sig)

	if api.partialCount() != 1 {
		t.Fatalf("expected one partial close, got %d", api.partialCount())
	}
	if api.partials[0].positionID != "pos-new" {
		t.Fatalf("dispatch must only touch refs recorded after the replace, got %+v", api.partials)
	}
}

func TestDispatchGoneAndLivePositions(t *testing.T) {
	api := newFakeTradingAPI()
	seedPosition(api, "acc-1", "pos-live", "XAUUSD", 0.2, 2050)

	reg := registry.New(nil)
	key := registry.Key{SubscriberID: 77, ChannelID: 10, Symbol: "XAUUSD"}
	ticket := reg.Put(key, models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD"})
	reg.AttachPosition(ticket, models.PositionRef{AccountID: "acc-1", PositionID: "pos-gone", Symbol: "XAUUSD"})
	reg.AttachPosition(ticket, models.PositionRef{AccountID: "acc-1", PositionID: "pos-live", Symbol: "XAUUSD"})

	d := NewDispatcher(api, reg, &fakeNotifier{})
	sub := testSubscriber(models.Account{ID: "acc-1", Login: "111"})
	sub.Settings.MoveToBreakeven = false

	sig := models.Signal{Action: models.ActionBuy, Symbol: "XAUUSD", IsUpdate: true, RawText: "BUY GOLD TP HIT"}
	d.Dispatch(context.Background(), sub, 10, sig)

	if api.partialCount() != 1 || api.partials[0].positionID != "pos-live" {
		t.Fatalf("expected only the live position touched, got %+v", api.partials)
	}
}
