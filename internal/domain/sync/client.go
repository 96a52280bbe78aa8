package sync

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"vetrina-server-go/internal/domain/content"
	"vetrina-server-go/internal/platform/errors"
)

// Client is the HTTP Backend used against a running server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	op := "sync.client." + strings.ToLower(method)

	var reader *bytes.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.KindDomain, op, "encode request", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(errors.KindTransport, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.KindTransport, op, "request failed", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrap(errors.KindTransport, op, "decode response", err)
	}
	if !env.Success {
		kind := errors.KindTransport
		switch resp.StatusCode {
		case http.StatusConflict:
			kind = errors.KindConflict
		case http.StatusNotFound:
			kind = errors.KindNotFound
		case http.StatusBadRequest:
			kind = errors.KindValidation
		case http.StatusUnauthorized:
			kind = errors.KindAuth
		}
		return errors.New(kind, op, fmt.Sprintf("%s %s: %s", method, path, env.Message))
	}

	if out != nil && env.Data != nil {
		raw, err := sonic.Marshal(env.Data)
		if err != nil {
			return errors.Wrap(errors.KindTransport, op, "reencode payload", err)
		}
		if err := sonic.Unmarshal(raw, out); err != nil {
			return errors.Wrap(errors.KindTransport, op, "decode payload", err)
		}
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context) (map[string]map[string]interface{}, []content.Item, error) {
	var payload struct {
		Sections map[string]map[string]interface{} `json:"sections"`
		Products []content.Item                    `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/content", nil, &payload); err != nil {
		return nil, nil, err
	}
	return payload.Sections, payload.Products, nil
}

func (c *Client) SaveSection(ctx context.Context, key string, doc map[string]interface{}) error {
	return c.do(ctx, http.MethodPut, "/api/content/"+key, doc, nil)
}

func (c *Client) CreateItem(ctx context.Context, slug string, doc map[string]interface{}) (content.Item, error) {
	var item content.Item
	body := map[string]interface{}{"slug": slug, "data": doc}
	if err := c.do(ctx, http.MethodPost, "/api/products", body, &item); err != nil {
		return content.Item{}, err
	}
	return item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id uint, slug string, doc map[string]interface{}) (content.Item, error) {
	var item content.Item
	body := map[string]interface{}{"data": doc}
	if slug != "" {
		body["slug"] = slug
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/products/%d", id), body, &item); err != nil {
		return content.Item{}, err
	}
	return item, nil
}

func (c *Client) DeleteItem(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, nil)
}

func (c *Client) Reorder(ctx context.Context, ids []uint) error {
	return c.do(ctx, http.MethodPut, "/api/products/reorder", map[string]interface{}{"ids": ids}, nil)
}
