package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory stores standing in for Postgres

type memoryProducts struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*domain.Product
	err      error
}

func newMemoryProducts() *memoryProducts {
	return &memoryProducts{products: make(map[int64]*domain.Product)}
}

func (m *memoryProducts) Create(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	stored := *p
	m.products[p.ID] = &stored
	return nil
}

func (m *memoryProducts) Update(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	stored := *p
	m.products[p.ID] = &stored
	return nil
}

func (m *memoryProducts) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryProducts) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.products))
	m.products = make(map[int64]*domain.Product)
	return n, nil
}

func (m *memoryProducts) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memoryProducts) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Product{}
	for id := int64(1); id <= m.nextID; id++ {
		p, ok := m.products[id]
		if !ok || (filter.Category != "" && p.Category != filter.Category) {
			continue
		}
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryProducts) CountProducts(ctx context.Context) (map[domain.Category]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.Category]int)
	for _, p := range m.products {
		counts[p.Category]++
	}
	return counts, nil
}

type memoryCart struct {
	mu     sync.Mutex
	nextID int64
	items  []*domain.CartItem
}

func (m *memoryCart) ListBySession(ctx context.Context, sessionID string) ([]*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.CartItem{}
	for _, item := range m.items {
		if item.SessionID == sessionID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryCart) Upsert(ctx context.Context, item *domain.CartItem) (domain.CartAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.SessionID == item.SessionID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			item.ID, item.Quantity = existing.ID, existing.Quantity
			return domain.ActionUpdated, nil
		}
	}
	m.nextID++
	item.ID = m.nextID
	stored := *item
	m.items = append(m.items, &stored)
	return domain.ActionAdded, nil
}

func (m *memoryCart) UpdateQuantity(ctx context.Context, sessionID string, id int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id && item.SessionID == sessionID {
			item.Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *memoryCart) Delete(ctx context.Context, sessionID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.ID == id && item.SessionID == sessionID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *memoryCart) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	var deleted int64
	for _, item := range m.items {
		if item.SessionID == sessionID {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	return deleted, nil
}

type testAPI struct {
	router   http.Handler
	products *memoryProducts
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	products := newMemoryProducts()
	logger := zap.NewNop()
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	r.Use(middleware.ErrorHandlingMiddleware(logger))
	NewProductHandler(service.NewCatalogService(products, products), logger).RegisterRoutes(r, passthrough)
	NewCartHandler(service.NewCartService(&memoryCart{}), logger).RegisterRoutes(r, passthrough)

	return &testAPI{router: r, products: products}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func addBody(session string, productID int64, name string, price int64, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"product_id":    productID,
		"product_name":  name,
		"product_price": price,
		"quantity":      quantity,
		"session_id":    session,
	}
}

func TestCartAPI_Scenario(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/cart", addBody("s1", 1, "A", 100, 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[AddToCartResponse](t, w)
	assert.True(t, first.Success)
	assert.Equal(t, domain.ActionAdded, first.Action)

	w = api.do(t, http.MethodPost, "/api/cart", addBody("s1", 1, "A", 100, 1))
	second := decode[AddToCartResponse](t, w)
	assert.Equal(t, domain.ActionUpdated, second.Action)
	assert.Equal(t, first.ID, second.ID)

	w = api.do(t, http.MethodPost, "/api/cart", addBody("s1", 2, "B", 200, 3))
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/cart/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[CartResponse](t, w)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	totals := domain.Totals(cart.Items)
	assert.Equal(t, 5, totals.TotalItems)
	assert.True(t, decimal.NewFromInt(800).Equal(totals.TotalPrice))
}

func TestCartAPI_PricesAreJSONNumbers(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/cart", addBody("s1", 1, "A", 499000, 1))

	w := api.do(t, http.MethodGet, "/api/cart/s1", nil)

	var raw struct {
		Items []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.Len(t, raw.Items, 1)
	assert.IsType(t, float64(0), raw.Items[0]["product_price"])
}

func TestCartAPI_UnknownSessionIsEmpty(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/cart/never-seen", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestCartAPI_SetQuantity(t *testing.T) {
	api := newTestAPI(t)
	added := decode[AddToCartResponse](t, api.do(t, http.MethodPost, "/api/cart", addBody("s1", 1, "A", 100, 1)))
	path := "/api/cart/" + itoa(added.ID)

	t.Run("Updates own item", func(t *testing.T) {
		w := api.do(t, http.MethodPut, path, map[string]interface{}{"quantity": 4, "session_id": "s1"})
		require.Equal(t, http.StatusOK, w.Code)

		cart := decode[CartResponse](t, api.do(t, http.MethodGet, "/api/cart/s1", nil))
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 4, cart.Items[0].Quantity)
	})

	t.Run("Foreign session gets 404", func(t *testing.T) {
		w := api.do(t, http.MethodPut, path, map[string]interface{}{"quantity": 9, "session_id": "s2"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing quantity is a validation error", func(t *testing.T) {
		w := api.do(t, http.MethodPut, path, map[string]interface{}{"session_id": "s1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Zero removes", func(t *testing.T) {
		w := api.do(t, http.MethodPut, path, map[string]interface{}{"quantity": 0, "session_id": "s1"})
		require.Equal(t, http.StatusOK, w.Code)

		cart := decode[CartResponse](t, api.do(t, http.MethodGet, "/api/cart/s1", nil))
		assert.Empty(t, cart.Items)
	})
}

func TestCartAPI_RemoveItem(t *testing.T) {
	api := newTestAPI(t)
	added := decode[AddToCartResponse](t, api.do(t, http.MethodPost, "/api/cart", addBody("s1", 1, "A", 100, 1)))
	path := "/api/cart/" + itoa(added.ID)

	foreign := api.do(t, http.MethodDelete, path, map[string]interface{}{"session_id": "s2"})
	missing := api.do(t, http.MethodDelete, "/api/cart/424242", map[string]interface{}{"session_id": "s2"})

	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	// Same message either way, existence is not revealed
	assert.Equal(t,
		decode[middleware.ErrorResponse](t, foreign).Error.Message,
		decode[middleware.ErrorResponse](t, missing).Error.Message)

	cart := decode[CartResponse](t, api.do(t, http.MethodGet, "/api/cart/s1", nil))
	require.Len(t, cart.Items, 1)

	own := api.do(t, http.MethodDelete, path, map[string]interface{}{"session_id": "s1"})
	assert.Equal(t, http.StatusOK, own.Code)
}

func TestCartAPI_ClearCart(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/cart", addBody("s1", 1, "A", 100, 1))
	api.do(t, http.MethodPost, "/api/cart", addBody("s1", 2, "B", 100, 1))
	api.do(t, http.MethodPost, "/api/cart", addBody("s2", 1, "A", 100, 1))

	w := api.do(t, http.MethodDelete, "/api/cart/clear/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ClearCartResponse{Success: true, Deleted: 2}, decode[ClearCartResponse](t, w))

	again := api.do(t, http.MethodDelete, "/api/cart/clear/s1", nil)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Zero(t, decode[ClearCartResponse](t, again).Deleted)

	other := decode[CartResponse](t, api.do(t, http.MethodGet, "/api/cart/s2", nil))
	assert.Len(t, other.Items, 1)
}

func TestCartAPI_AddValidation(t *testing.T) {
	api := newTestAPI(t)

	cases := map[string]map[string]interface{}{
		"missing session":    {"product_id": 1, "product_name": "A", "product_price": 1},
		"missing product id": {"product_name": "A", "product_price": 1, "session_id": "s1"},
		"negative quantity":  addBody("s1", 1, "A", 100, -1),
		"quantity too large": addBody("s1", 1, "A", 100, 2147483648),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/cart", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCartAPI_AddWithoutPriceIsRejected(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": 7, "product_name": "A", "session_id": "s1",
	})

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"field":"product_price"`)

	items := decode[CartResponse](t, api.do(t, http.MethodGet, "/api/cart/s1", nil)).Items
	assert.Empty(t, items, "nothing is stored")
}

func TestCartAPI_ExplicitZeroPriceIsStored(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/cart", addBody("s1", 7, "Gift", 0, 1))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCartAPI_SetQuantityTooLarge(t *testing.T) {
	api := newTestAPI(t)
	added := decode[AddToCartResponse](t, api.do(t, http.MethodPost, "/api/cart", addBody("s1", 1, "A", 100, 1)))

	w := api.do(t, http.MethodPut, "/api/cart/"+itoa(added.ID), map[string]interface{}{
		"quantity": 2147483648, "session_id": "s1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	items := decode[CartResponse](t, api.do(t, http.MethodGet, "/api/cart/s1", nil)).Items
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestProductAPI(t *testing.T) {
	api := newTestAPI(t)

	t.Run("Missing product is 404", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/products/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Non-numeric id is 400", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/products/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	body := map[string]interface{}{
		"name":             "Active Flex",
		"price":            499000,
		"original_price":   669000,
		"image":            "img/balodulich2.jpg",
		"category":         "travel-backpack",
		"discount_percent": 25,
	}

	w := api.do(t, http.MethodPost, "/api/products", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[CreateProductResponse](t, w)
	assert.True(t, created.Success)

	t.Run("Detail", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/products/"+itoa(created.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		product := decode[ProductResponse](t, w).Product
		assert.Equal(t, "Active Flex", product.Name)
		assert.True(t, product.IsNew, "is_new defaults to true")
		assert.True(t, product.OriginalPrice.Valid)
		require.NotNil(t, product.DiscountPercent)
		assert.Equal(t, 25, *product.DiscountPercent)
	})

	t.Run("Missing price is rejected", func(t *testing.T) {
		noPrice := map[string]interface{}{"name": "Free", "image": "x.jpg", "category": "other"}
		w := api.do(t, http.MethodPost, "/api/products", noPrice)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"field":"price"`)

		assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPut, "/api/products/"+itoa(created.ID), noPrice).Code)
	})

	t.Run("Unknown category is rejected", func(t *testing.T) {
		bad := map[string]interface{}{"name": "Lip", "price": 1, "image": "x.jpg", "category": "makeup"}
		w := api.do(t, http.MethodPost, "/api/products", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Filter and limit", func(t *testing.T) {
		api.do(t, http.MethodPost, "/api/products", map[string]interface{}{
			"name": "Tote", "price": 75000, "image": "img/b8.jpg", "category": "women-handbag",
		})

		list := decode[ProductListResponse](t, api.do(t, http.MethodGet, "/api/products?category=women-handbag", nil))
		require.Len(t, list.Products, 1)
		assert.Equal(t, "Tote", list.Products[0].Name)

		limited := decode[ProductListResponse](t, api.do(t, http.MethodGet, "/api/products?limit=1", nil))
		assert.Len(t, limited.Products, 1)

		none := api.do(t, http.MethodGet, "/api/products?category=nope", nil)
		assert.JSONEq(t, `{"products":[]}`, none.Body.String())

		assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/products?limit=0", nil).Code)
		assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/products?limit=ten", nil).Code)
	})

	t.Run("Categories", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/categories", nil)
		require.Equal(t, http.StatusOK, w.Code)
		categories := decode[CategoryListResponse](t, w).Categories
		require.Len(t, categories, len(domain.Categories()))
	})

	t.Run("Update and delete", func(t *testing.T) {
		path := "/api/products/" + itoa(created.ID)
		body["price"] = 450000
		assert.Equal(t, http.StatusOK, api.do(t, http.MethodPut, path, body).Code)
		assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPut, "/api/products/999", body).Code)

		assert.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, path, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, path, nil).Code)
	})

	t.Run("Store failure is 500", func(t *testing.T) {
		api.products.err = errors.New("connection refused")
		defer func() { api.products.err = nil }()

		assert.Equal(t, http.StatusInternalServerError, api.do(t, http.MethodGet, "/api/products", nil).Code)
	})
}
