// Package client is a typed HTTP client for the storefront API. It attaches
// the locally stored session token to every cart call and derives cart totals
// from a fresh server read, never from state it kept itself.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/session"

	"github.com/shopspring/decimal"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Cart is a session's items plus totals computed from them
type Cart struct {
	SessionID string
	Items     []*domain.CartItem
	Totals    domain.CartTotals
}

// AddResult reports where an add landed
type AddResult struct {
	ID     int64             `json:"id"`
	Action domain.CartAction `json:"action"`
}

// Client talks to one storefront API
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the time source used for new session tokens
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client for baseURL, e.g. http://localhost:3000/api
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		store:      store,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the stored token, creating one on first use
func (c *Client) SessionID() (string, error) {
	return session.Ensure(c.store, c.now)
}

// ListProducts fetches the catalog, optionally by category and limit
func (c *Client) ListProducts(ctx context.Context, category domain.Category, limit int) ([]*domain.Product, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", string(category))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Products []*domain.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// GetProduct fetches one product
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var resp struct {
		Product *domain.Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Product, nil
}

// ListCategories fetches the product count per category
func (c *Client) ListCategories(ctx context.Context) ([]domain.CategorySummary, error) {
	var resp struct {
		Categories []domain.CategorySummary `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// Cart reads the session's cart and computes its totals
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []*domain.CartItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/cart/"+url.PathEscape(sessionID), sessionID, nil, &resp); err != nil {
		return nil, err
	}

	return &Cart{
		SessionID: sessionID,
		Items:     resp.Items,
		Totals:    domain.Totals(resp.Items),
	}, nil
}

// AddToCart adds quantity of product, copying its current name, price and
// image onto the line
func (c *Client) AddToCart(ctx context.Context, product *domain.Product, quantity int) (*AddResult, error) {
	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}

	body := struct {
		ProductID    int64           `json:"product_id"`
		ProductName  string          `json:"product_name"`
		ProductPrice decimal.Decimal `json:"product_price"`
		ProductImage string          `json:"product_image"`
		Quantity     int             `json:"quantity"`
		SessionID    string          `json:"session_id"`
	}{product.ID, product.Name, product.Price, product.Image, quantity, sessionID}

	var resp AddResult
	if err := c.do(ctx, http.MethodPost, "/cart", sessionID, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateQuantity sets an item's quantity; below 1 removes the item
func (c *Client) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return c.RemoveFromCart(ctx, itemID)
	}

	sessionID, err := c.SessionID()
	if err != nil {
		return err
	}

	body := map[string]interface{}{"quantity": quantity, "session_id": sessionID}
	return c.do(ctx, http.MethodPut, "/cart/"+strconv.FormatInt(itemID, 10), sessionID, body, nil)
}

// RemoveFromCart deletes one of this session's items
func (c *Client) RemoveFromCart(ctx context.Context, itemID int64) error {
	sessionID, err := c.SessionID()
	if err != nil {
		return err
	}

	body := map[string]string{"session_id": sessionID}
	return c.do(ctx, http.MethodDelete, "/cart/"+strconv.FormatInt(itemID, 10), sessionID, body, nil)
}

// ClearCart empties this session's cart and returns how many lines went
func (c *Client) ClearCart(ctx context.Context) (int64, error) {
	sessionID, err := c.SessionID()
	if err != nil {
		return 0, err
	}

	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/cart/clear/"+url.PathEscape(sessionID), sessionID, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

func (c *Client) do(ctx context.Context, method, path, sessionID string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody middleware.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error.Message != "" {
			apiErr.Message = errBody.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
