package service

import (
	"context"
	"fmt"
	"net/http"
)

// PlaceOrder отправляет торговую заявку на счёт. Числовой код 0 или
// TRADE_RETCODE_DONE считаем успехом, остальное — отказ брокера.
func (c *Client) PlaceOrder(ctx context.Context, accountID string, req TradeRequest) (*TradeResponse, error) {
	var resp TradeResponse
	err := c.doJSON(ctx, http.MethodPost,
		"/users/current/accounts/"+accountID+"/trade", req, &resp)
	if err != nil {
		return nil, err
	}
	if resp.NumericCode != 0 && resp.StringCode != "TRADE_RETCODE_DONE" {
		return nil, fmt.Errorf("metaapi trade rejected: code=%d %s: %s",
			resp.NumericCode, resp.StringCode, resp.Message)
	}
	return &resp, nil
}

// ModifyPosition двигает SL/TP открытой позиции. Ноль означает
// "не трогать уровень".
func (c *Client) ModifyPosition(ctx context.Context, accountID, positionID string, stopLoss, takeProfit float64) error {
	body := map[string]float64{}
	if stopLoss > 0 {
		body["stopLoss"] = stopLoss
	}
	if takeProfit > 0 {
		body["takeProfit"] = takeProfit
	}
	return c.doJSON(ctx, http.MethodPut,
		"/users/current/accounts/"+accountID+"/positions/"+positionID+"/modify", body, nil)
}

// ClosePartially закрывает часть позиции указанным объёмом.
func (c *Client) ClosePartially(ctx context.Context, accountID, positionID string, volume float64) error {
	body := map[string]float64{"volume": volume}
	return c.doJSON(ctx, http.MethodPost,
		"/users/current/accounts/"+accountID+"/positions/"+positionID+"/close-partially", body, nil)
}

// ClosePosition закрывает позицию целиком.
func (c *Client) ClosePosition(ctx context.Context, accountID, positionID string) error {
	return c.doJSON(ctx, http.MethodPost,
		"/users/current/accounts/"+accountID+"/positions/"+positionID+"/close", nil, nil)
}
