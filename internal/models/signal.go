package models

// Action — направление сделки из сигнала.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Reverse для режима reverse_signals (BUY <-> SELL).
func (a Action) Reverse() Action {
	if a == ActionBuy {
		return ActionSell
	}
	return ActionBuy
}

// Signal — разобранный сигнал из канала. После парсинга не мутируется.
type Signal struct {
	Action Action
	Symbol string // канонический символ (XAUUSD, US30, ...)

	// Entry > 0 — числовая цена входа. Для immediate-сигналов входа нет,
	// исполняемся по рынку.
	Entry     float64
	Immediate bool

	StopLoss float64 // 0 — нет
	TP1      float64
	TP2      float64
	TP3      float64

	// IsUpdate: сообщение мутирует ранее открытый сигнал (TP HIT / CLOSE / ...),
	// а не открывает новый.
	IsUpdate bool

	// RawText хранится для повторного скана ключевых слов в диспетчере.
	RawText string
}

// HasEntry — есть ли числовая цена для отложенного ордера.
func (s *Signal) HasEntry() bool { return !s.Immediate && s.Entry > 0 }

// ChannelEvent — сырое сообщение из отслеживаемого канала.
type ChannelEvent struct {
	SubscriberID int64
	ChannelID    int64
	MessageID    int
	Text         string
}
