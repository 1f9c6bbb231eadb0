package models

import "time"

type Platform string

const (
	PlatformMT4 Platform = "mt4"
	PlatformMT5 Platform = "mt5"
)

// Account — привязанный брокерский счёт (MetaApi account id + логин).
type Account struct {
	ID       string   `json:"id"`
	Login    string   `json:"login"`
	Name     string   `json:"name"`
	Platform Platform `json:"platform"`
}

// Channel — отслеживаемый сигнальный канал.
type Channel struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
}

// CopySettings — настройки копирования. Ядро их только читает.
type CopySettings struct {
	NumberOfOrders int     `json:"number_of_orders"`
	BaseLotSize    float64 `json:"base_lot_size"`
	LotMultiplier  float64 `json:"lot_multiplier"`
	MaxRiskPct     float64 `json:"max_risk_pct"`

	CopyStopLoss   bool `json:"copy_stop_loss"`
	CopyTakeProfit bool `json:"copy_take_profit"`
	ReverseSignals bool `json:"reverse_signals"`

	AutoCloseAtTP1      bool    `json:"auto_close_at_tp1"`
	MoveToBreakeven     bool    `json:"move_to_breakeven"`
	BreakEvenTriggerPct float64 `json:"break_even_trigger_pct"`
}

// OrderVolume — объём одного ордера.
func (c CopySettings) OrderVolume() float64 { return c.BaseLotSize * c.LotMultiplier }

// Subscriber хранит профиль пользователя: счета, каналы, настройки.
type Subscriber struct {
	ID   int64  `json:"id"` // Telegram chat/user ID
	Name string `json:"name"`

	Accounts []Account    `json:"accounts"`
	Channels []Channel    `json:"channels"`
	Settings CopySettings `json:"settings"`

	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// AccountsByPlatform — для меню «My Accounts».
func (s *Subscriber) AccountsByPlatform(p Platform) []Account {
	out := make([]Account, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.Platform == p {
			out = append(out, a)
		}
	}
	return out
}

// HasChannel — подписан ли пользователь на канал.
func (s *Subscriber) HasChannel(channelID int64) bool {
	for _, ch := range s.Channels {
		if ch.ID == channelID {
			return true
		}
	}
	return false
}

// Snapshot — копия профиля для воркеров (сессии не должны видеть
// последующие правки из бота).
func (s *Subscriber) Snapshot() Subscriber {
	cp := *s
	cp.Accounts = append([]Account(nil), s.Accounts...)
	cp.Channels = append([]Channel(nil), s.Channels...)
	return cp
}
