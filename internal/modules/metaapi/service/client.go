package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"copier_bot/internal/modules/config"

	"github.com/bytedance/sonic"
)

// Client — REST-клиент торгового шлюза MetaApi. Один клиент на процесс,
// все счета ходят через него с одним auth-token.
type Client struct {
	cfg *config.Config

	http    *http.Client
	baseURL string
	token   string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: cfg.MetaAPI.BaseURL,
		token:   cfg.MetaAPI.Token,
	}
}

// doJSON выполняет запрос и декодирует ответ в out (если out != nil).
// Не-2xx статус превращается в *APIError с телом ответа.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("metaapi marshal %s: %w", path, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("metaapi new request %s: %w", path, err)
	}
	req.Header.Set("auth-token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("metaapi do %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		return &APIError{
			Status: resp.StatusCode,
			Path:   path,
			Body:   string(data),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("metaapi decode %s: %w; body=%s", path, err, string(data))
	}
	return nil
}
