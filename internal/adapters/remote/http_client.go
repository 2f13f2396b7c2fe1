// internal/adapters/remote/http_client.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
)

// SessionHeader carries the session credentials on every request
const SessionHeader = "X-Session-ID"

// Config holds remote cart service settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP implementation of the remote cart contract. The
// upstream's loose payload shapes are normalized into the strict
// LineItem once, here, so the core never sees the schema variance.
type Client struct {
	http      *http.Client
	baseURL   string
	sessionID string
	logger    *slog.Logger
}

// Statically assert that *Client implements the RemoteCartClient interface.
var _ ports.RemoteCartClient = (*Client)(nil)

// NewClient creates a remote cart client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger.With(slog.String("adapter", "remote_cart")),
	}
}

// WithSession returns a copy of the client bound to the given session
// credentials.
func (c *Client) WithSession(sessionID string) ports.RemoteCartClient {
	derived := *c
	derived.sessionID = sessionID
	return &derived
}

// List fetches the full remote cart
func (c *Client) List(ctx context.Context) ([]domain.LineItem, error) {
	body, err := c.do(ctx, http.MethodGet, "/cart/items", nil, "list", domain.ItemKey{})
	if err != nil {
		return nil, err
	}

	// The upstream answers either a bare array or an {"items": [...]}
	// envelope depending on revision.
	var envelope struct {
		Items []wireItem `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Items == nil {
		var plain []wireItem
		if err := json.Unmarshal(body, &plain); err != nil {
			return nil, &domain.DefiniteSyncError{Op: "list", Reason: fmt.Sprintf("malformed response: %v", err)}
		}
		envelope.Items = plain
	}

	items := make([]domain.LineItem, 0, len(envelope.Items))
	for _, w := range envelope.Items {
		items = append(items, w.normalize())
	}
	return items, nil
}

// Add posts an add-to-cart mutation and returns the server-confirmed line
func (c *Client) Add(ctx context.Context, key domain.ItemKey, quantity int) (*domain.LineItem, error) {
	payload := map[string]any{
		"product_id":  key.ProductID,
		"variant_key": key.VariantKey,
		"quantity":    quantity,
	}
	body, err := c.do(ctx, http.MethodPost, "/cart/items", payload, "add", key)
	if err != nil {
		return nil, err
	}
	return c.decodeItem(body, "add", key)
}

// UpdateQuantity puts a quantity change and returns the server-confirmed line
func (c *Client) UpdateQuantity(ctx context.Context, key domain.ItemKey, quantity int) (*domain.LineItem, error) {
	payload := map[string]any{"quantity": quantity}
	body, err := c.do(ctx, http.MethodPut, itemPath(key), payload, "update_quantity", key)
	if err != nil {
		return nil, err
	}
	return c.decodeItem(body, "update_quantity", key)
}

// Ping reports whether the upstream answers at all. Any HTTP response
// counts as reachable; only transport failures are unhealthy.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote cart unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Remove deletes the remote line for key
func (c *Client) Remove(ctx context.Context, key domain.ItemKey) error {
	_, err := c.do(ctx, http.MethodDelete, itemPath(key), nil, "remove", key)
	return err
}

func itemPath(key domain.ItemKey) string {
	return "/cart/items/" + url.PathEscape(key.ProductID) + "/" + url.PathEscape(key.VariantKey)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, op string, key domain.ItemKey) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set(SessionHeader, c.sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures (connection refused, timeout) are retryable.
		return nil, &domain.TransientSyncError{Op: op, Key: key, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransientSyncError{Op: op, Key: key, Cause: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return nil, &domain.TransientSyncError{
			Op: op, Key: key,
			Cause: fmt.Errorf("upstream returned %s", resp.Status),
		}
	default:
		code, reason := decodeError(body)
		if code == "" && resp.StatusCode == http.StatusNotFound {
			code = domain.NotFoundCode
		}
		if reason == "" {
			reason = resp.Status
		}
		c.logger.DebugContext(ctx, "remote cart rejected mutation",
			slog.String("op", op),
			slog.String("key", key.String()),
			slog.Int("status", resp.StatusCode),
			slog.String("code", code))
		return nil, &domain.DefiniteSyncError{Op: op, Key: key, Code: code, Reason: reason}
	}
}

func (c *Client) decodeItem(body []byte, op string, key domain.ItemKey) (*domain.LineItem, error) {
	// Single item, possibly wrapped in an {"item": {...}} envelope.
	var envelope struct {
		Item *wireItem `json:"item"`
	}
	w := &wireItem{}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Item != nil {
		w = envelope.Item
	} else if err := json.Unmarshal(body, w); err != nil {
		return nil, &domain.DefiniteSyncError{Op: op, Key: key, Reason: fmt.Sprintf("malformed response: %v", err)}
	}
	item := w.normalize()
	if item.Key.ProductID == "" {
		item.Key = key
	}
	return &item, nil
}

// decodeError extracts code and message from the upstream error
// payload, which spells both fields several ways across revisions.
func decodeError(body []byte) (code, reason string) {
	var payload struct {
		Code    string `json:"code"`
		ErrCode string `json:"error_code"`
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}
	code = firstNonEmpty(payload.Code, payload.ErrCode)
	reason = firstNonEmpty(payload.Message, payload.Error, payload.Detail)
	return code, reason
}

// wireItem mirrors the upstream cart item, which uses different field
// names for the same concept depending on which endpoint and revision
// produced it. normalize() coalesces them into the strict LineItem.
type wireItem struct {
	ProductID      string           `json:"product_id"`
	ProductIDAlt   string           `json:"productId"`
	ID             string           `json:"id"`
	Barcode        string           `json:"barcode"`
	VariantKey     string           `json:"variant_key"`
	VariantKeyAlt  string           `json:"variantKey"`
	Variant        string           `json:"variant"`
	Name           string           `json:"name"`
	Title          string           `json:"title"`
	Price          *decimal.Decimal `json:"price"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	UnitPriceAlt   *decimal.Decimal `json:"unitPrice"`
	Quantity       int              `json:"quantity"`
	Qty            int              `json:"qty"`
	StockStatus    string           `json:"stock_status"`
	StockStatusAlt string           `json:"stockStatus"`
	Status         string           `json:"status"`
	StockCount     int              `json:"stock_count"`
	StockCountAlt  int              `json:"stockCount"`
	Stock          int              `json:"stock"`
	ExpiryDate     *time.Time       `json:"expiry_date"`
	ExpiryDateAlt  *time.Time       `json:"expiryDate"`
	ImageURL       string           `json:"image_url"`
	ImageURLAlt    string           `json:"imageUrl"`
	Thumbnail      string           `json:"thumbnail"`
}

func (w *wireItem) normalize() domain.LineItem {
	item := domain.LineItem{
		Key: domain.ItemKey{
			ProductID:  firstNonEmpty(w.ProductID, w.ProductIDAlt, w.ID, w.Barcode),
			VariantKey: firstNonEmpty(w.VariantKey, w.VariantKeyAlt, w.Variant),
		},
		Name:       firstNonEmpty(w.Name, w.Title),
		Quantity:   firstNonZero(w.Quantity, w.Qty),
		Stock:      normalizeStatus(firstNonEmpty(w.StockStatus, w.StockStatusAlt, w.Status)),
		StockCount: firstNonZero(w.StockCount, w.StockCountAlt, w.Stock),
		ImageURL:   firstNonEmpty(w.ImageURL, w.ImageURLAlt, w.Thumbnail),
	}
	for _, p := range []*decimal.Decimal{w.Price, w.UnitPrice, w.UnitPriceAlt} {
		if p != nil {
			item.UnitPrice = *p
			break
		}
	}
	if w.ExpiryDate != nil {
		item.ExpiryDate = w.ExpiryDate
	} else if w.ExpiryDateAlt != nil {
		item.ExpiryDate = w.ExpiryDateAlt
	}
	return item
}

func normalizeStatus(raw string) domain.StockStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in", "in_stock", "instock", "available":
		return domain.StockInStock
	case "low", "low_stock", "lowstock":
		return domain.StockLowStock
	case "out", "out_of_stock", "outofstock", "unavailable":
		return domain.StockOutOfStock
	case "expired":
		return domain.StockExpired
	default:
		return domain.StockInStock
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
