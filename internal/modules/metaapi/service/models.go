package service

import "time"

// Account — торговый счёт, заведённый в облаке MetaApi.
type Account struct {
	ID               string `json:"_id"`
	Login            string `json:"login"`
	Name             string `json:"name"`
	Server           string `json:"server"`
	Platform         string `json:"platform"` // "mt4" / "mt5"
	State            string `json:"state"`    // DEPLOYED / UNDEPLOYED / ...
	ConnectionStatus string `json:"connectionStatus"`
}

// ProvisionRequest — заявка на подключение счёта.
type ProvisionRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Server      string `json:"server"`
	Platform    string `json:"platform"`
	Magic       int    `json:"magic"`
	Application string `json:"application"`
	Type        string `json:"type"`
}

type provisionResponse struct {
	ID string `json:"id"`
}

// Position — открытая позиция на счёте.
type Position struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Type         string    `json:"type"` // POSITION_TYPE_BUY / POSITION_TYPE_SELL
	Volume       float64   `json:"volume"`
	OpenPrice    float64   `json:"openPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	StopLoss     float64   `json:"stopLoss"`
	TakeProfit   float64   `json:"takeProfit"`
	Profit       float64   `json:"profit"`
	Time         time.Time `json:"time"`
}

// IsBuy — направление позиции.
func (p *Position) IsBuy() bool {
	return p.Type == "POSITION_TYPE_BUY"
}

// TradeRequest — тело POST .../trade.
type TradeRequest struct {
	ActionType string  `json:"actionType"`
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	OpenPrice  float64 `json:"openPrice,omitempty"`
	StopLoss   float64 `json:"stopLoss,omitempty"`
	TakeProfit float64 `json:"takeProfit,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

// TradeResponse — ответ шлюза на торговую операцию.
type TradeResponse struct {
	NumericCode int    `json:"numericCode"`
	StringCode  string `json:"stringCode"`
	Message     string `json:"message"`
	OrderID     string `json:"orderId"`
	PositionID  string `json:"positionId"`
}

const (
	ActionBuy       = "ORDER_TYPE_BUY"
	ActionSell      = "ORDER_TYPE_SELL"
	ActionBuyLimit  = "ORDER_TYPE_BUY_LIMIT"
	ActionSellLimit = "ORDER_TYPE_SELL_LIMIT"
)
