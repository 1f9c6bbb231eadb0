package service

import (
	"context"
	"net/http"
)

// Positions — открытые позиции счёта.
func (c *Client) Positions(ctx context.Context, accountID string) ([]Position, error) {
	var out []Position
	err := c.doJSON(ctx, http.MethodGet,
		"/users/current/accounts/"+accountID+"/positions", nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Position — одна позиция по id. Исчезнувшая позиция приходит 404-м,
// вызывающий различает это через *APIError.
func (c *Client) Position(ctx context.Context, accountID, positionID string) (*Position, error) {
	var out Position
	err := c.doJSON(ctx, http.MethodGet,
		"/users/current/accounts/"+accountID+"/positions/"+positionID, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
