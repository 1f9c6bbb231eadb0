package service

import (
	"context"
	"fmt"
	"net/http"
)

// ProvisionAccount заводит счёт в облаке и возвращает его id.
// Application и Type проставляем сами, наружу их не выносим.
func (c *Client) ProvisionAccount(ctx context.Context, req ProvisionRequest) (string, error) {
	req.Application = "MetaApi"
	req.Type = "cloud"
	if req.Magic == 0 {
		req.Magic = 1000
	}

	var resp provisionResponse
	err := c.doJSON(ctx, http.MethodPost, "/users/current/accounts", req, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("metaapi provision: empty account id")
	}
	return resp.ID, nil
}

// DeployAccount поднимает терминал счёта в облаке.
func (c *Client) DeployAccount(ctx context.Context, accountID string) error {
	return c.doJSON(ctx, http.MethodPost,
		"/users/current/accounts/"+accountID+"/deploy", nil, nil)
}

// GetAccount возвращает состояние одного счёта.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var acc Account
	err := c.doJSON(ctx, http.MethodGet, "/users/current/accounts/"+accountID, nil, &acc)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// ListAccounts — все счета пользователя API-ключа. Используется
// стартовой проверкой связности.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var accs []Account
	err := c.doJSON(ctx, http.MethodGet, "/users/current/accounts", nil, &accs)
	if err != nil {
		return nil, err
	}
	return accs, nil
}
