package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BhataDev/mtc-server/internal/branch"
	"github.com/BhataDev/mtc-server/internal/order"
	"github.com/BhataDev/mtc-server/internal/pricing"
	"github.com/BhataDev/mtc-server/internal/store/memory"
)

// memUow is an in-memory unit of work capturing committed orders.
type memUow struct {
	mu     sync.Mutex
	seq    int
	orders []*order.Order
	addrs  []*order.Address
}

func (u *memUow) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	staged := &memTx{uow: u}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	u.orders = append(u.orders, staged.orders...)
	u.addrs = append(u.addrs, staged.addrs...)
	return nil
}

type memTx struct {
	uow    *memUow
	orders []*order.Order
	addrs  []*order.Address
}

func (t *memTx) NextOrderNumber(ctx context.Context) (string, error) {
	t.uow.seq++
	return fmt.Sprintf("ORD-%06d", t.uow.seq), nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *order.Order) error {
	t.orders = append(t.orders, o)
	return nil
}

func (t *memTx) SaveAddress(ctx context.Context, a *order.Address) error {
	t.addrs = append(t.addrs, a)
	return nil
}

type testEnv struct {
	store  *memory.Store
	uow    *memUow
	router *gin.Engine
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClock(t, pricing.SystemClock{})
}

func newTestEnvWithClock(t *testing.T, clk pricing.Clock) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.PutProduct(&pricing.Product{ID: "p1", Title: "Widget", Price: 20, CategoryID: "cat-1", Active: true})
	store.PutProduct(&pricing.Product{ID: "p2", Title: "Gadget", Price: 10, CategoryID: "cat-2", Active: true})
	store.PutBranch(&branch.Branch{ID: "zagreb", Name: "Zagreb", Active: true, Lat: 45.815, Lng: 15.9819})
	store.PutBranch(&branch.Branch{ID: "split", Name: "Split", Active: true, Lat: 43.5081, Lng: 16.4402})

	metrics := pricing.NewMetricsRecorder()
	pricingSvc := pricing.NewService(store, store, clk, metrics)
	locator := branch.NewLocator(store)
	uow := &memUow{}
	orderSvc := order.NewService(pricingSvc, store, locator, nil, uow, clk, order.DefaultConfig())

	Init(pricingSvc, orderSvc, locator, nil, store, clk)

	router := gin.New()
	router.POST("/api/v1/offers/resolve", ResolveOffers)
	router.POST("/api/v1/products/price", PriceProducts)
	router.GET("/api/v1/branches/nearest", NearestBranch)
	router.GET("/api/v1/branches/within", BranchesWithin)
	router.POST("/api/v1/orders", CreateOrder)
	router.GET("/internal/campaigns", ListCampaigns)
	router.POST("/internal/campaigns", CreateCampaign)
	router.PUT("/internal/campaigns/:id", UpdateCampaign)
	router.DELETE("/internal/campaigns/:id", DeactivateCampaign)

	return &testEnv{store: store, uow: uow, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func globalDiscount(id string, percent float64, priority int) *pricing.Campaign {
	return &pricing.Campaign{
		ID:       id,
		Title:    id,
		Active:   true,
		Mode:     pricing.BulkPercent{Percent: percent},
		Priority: priority,
	}
}

func TestResolveOffers(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutCampaign(globalDiscount("summer", 10, 5))
	env.store.PutCampaign(&pricing.Campaign{
		ID: "split-only", Title: "split-only", Active: true,
		Mode: pricing.BulkPercent{Percent: 20}, BranchIDs: []string{"split"}, Priority: 3,
	})

	w := env.do(t, http.MethodPost, "/api/v1/offers/resolve", gin.H{"branchId": "zagreb"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ResolveOffersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Offers, 1)
	assert.Equal(t, "summer", resp.Offers[0].ID)
	assert.Equal(t, "bulkPercent", resp.Offers[0].Mode)
	assert.Equal(t, 2, resp.Meta.TotalActive)
	assert.Equal(t, 1, resp.Meta.Eligible)
	assert.False(t, resp.Meta.Degraded)
}

func TestResolveOffersRejectsBadBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/resolve", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPriceProducts(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutCampaign(globalDiscount("summer", 10, 5))

	w := env.do(t, http.MethodPost, "/api/v1/products/price", gin.H{
		"productIds": []string{"p1", "p2"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Products []pricing.PricedProduct `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 2)
	assert.InDelta(t, 18.0, resp.Products[0].EffectivePrice, 0.001)
	assert.True(t, resp.Products[0].HasOffer)
}

func TestPriceProductsRequiresIDs(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/products/price", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearestBranch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/branches/nearest?lat=45.8&lng=15.97", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BranchView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "zagreb", resp.ID)
}

func TestNearestBranchNotFound(t *testing.T) {
	env := newTestEnv(t)

	// Middle of the Atlantic, default 50km limit
	w := env.do(t, http.MethodGet, "/api/v1/branches/nearest?lat=10&lng=-30", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNearestBranchRequiresCoordinates(t *testing.T) {
	env := newTestEnv(t)

	// Without coordinates the query would silently run at (0,0).
	w := env.do(t, http.MethodGet, "/api/v1/branches/nearest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/branches/nearest?lat=45.8", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBranchesWithinRequiresCoordinates(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/branches/within?radiusKm=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBranchesWithin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/branches/within?lat=45.8&lng=15.97&radiusKm=500", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Branches []BranchView `json:"branches"`
		Total    int          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "zagreb", resp.Branches[0].ID)
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"customerId":  "cust-1",
		"items":       []gin.H{{"productId": "p1", "quantity": 2}},
		"subtotal":    40.0,
		"shippingFee": 5.0,
		"total":       45.0,
		"address": gin.H{
			"line1": "Ilica 1", "city": "Zagreb", "postalCode": "10000", "country": "HR",
		},
		"coordinates": gin.H{"lat": 45.815, "lng": 15.9819},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ORD-000001", resp.Number)
	assert.Equal(t, "zagreb", resp.BranchID)
	assert.InDelta(t, 45.0, resp.Total, 0.001)
	require.Len(t, env.uow.orders, 1)
}

func TestCreateOrderPriceMismatch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"customerId": "cust-1",
		"items":      []gin.H{{"productId": "p1", "quantity": 1}},
		"subtotal":   12.0,
		"total":      12.0,
		"address": gin.H{
			"line1": "Ilica 1", "city": "Zagreb", "postalCode": "10000", "country": "HR",
		},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	// The response must not reveal the server-side price
	assert.NotContains(t, w.Body.String(), "20")
	assert.Empty(t, env.uow.orders)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"customerId": "cust-1",
		"items":      []gin.H{{"productId": "ghost", "quantity": 1}},
		"subtotal":   10.0,
		"total":      10.0,
		"address": gin.H{
			"line1": "Ilica 1", "city": "Zagreb", "postalCode": "10000", "country": "HR",
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ghost")
}

func TestCreateCampaign(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/internal/campaigns", gin.H{
		"title":       "Spring sale",
		"createdBy":   "admin-1",
		"creatorRole": "manager",
		"active":      true,
		"mode":        "bulkPercent",
		"percent":     15.0,
		"productIds":  []string{"p1"},
		"priority":    5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CampaignView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "bulkPercent", resp.Mode)

	stored, err := env.store.CampaignByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Spring sale", stored.Title)
}

func TestCreateCampaignValidation(t *testing.T) {
	env := newTestEnv(t)

	// bulkPercent without percent
	w := env.do(t, http.MethodPost, "/internal/campaigns", gin.H{
		"title":       "Broken",
		"createdBy":   "admin-1",
		"creatorRole": "manager",
		"mode":        "bulkPercent",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCampaignConflict(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutCampaign(&pricing.Campaign{
		ID: "existing", Title: "Existing exclusive", Active: true,
		Mode: pricing.BulkPercent{Percent: 10}, ProductIDs: []string{"p1"}, Priority: 5,
	})

	w := env.do(t, http.MethodPost, "/internal/campaigns", gin.H{
		"title":       "Contender",
		"createdBy":   "admin-1",
		"creatorRole": "manager",
		"active":      true,
		"mode":        "bulkAmount",
		"amount":      2.0,
		"productIds":  []string{"p1"},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "existing")
}

func TestCreateCampaignConflictUsesInjectedClock(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnvWithClock(t, fixedClock{now: now})

	// Overlaps p1 but its window closed three months before the fixed now,
	// so the conflict check must not count it.
	start := now.AddDate(0, -6, 0)
	end := now.AddDate(0, -3, 0)
	env.store.PutCampaign(&pricing.Campaign{
		ID: "expired", Title: "Expired exclusive", Active: true,
		Mode: pricing.BulkPercent{Percent: 10}, ProductIDs: []string{"p1"},
		StartsAt: &start, EndsAt: &end, Priority: 5,
	})

	w := env.do(t, http.MethodPost, "/internal/campaigns", gin.H{
		"title":       "Contender",
		"createdBy":   "admin-1",
		"creatorRole": "manager",
		"active":      true,
		"mode":        "bulkAmount",
		"amount":      2.0,
		"productIds":  []string{"p1"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// A campaign live at the fixed now still conflicts.
	liveEnd := now.AddDate(0, 1, 0)
	env.store.PutCampaign(&pricing.Campaign{
		ID: "live", Title: "Live exclusive", Active: true,
		Mode: pricing.BulkPercent{Percent: 10}, ProductIDs: []string{"p2"},
		EndsAt: &liveEnd, Priority: 5,
	})
	w = env.do(t, http.MethodPost, "/internal/campaigns", gin.H{
		"title":       "Second contender",
		"createdBy":   "admin-1",
		"creatorRole": "manager",
		"active":      true,
		"mode":        "bulkAmount",
		"amount":      2.0,
		"productIds":  []string{"p2"},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "live")
}

func TestCreateCampaignStackableNeverConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutCampaign(&pricing.Campaign{
		ID: "existing", Title: "Existing exclusive", Active: true,
		Mode: pricing.BulkPercent{Percent: 10}, ProductIDs: []string{"p1"}, Priority: 5,
	})

	w := env.do(t, http.MethodPost, "/internal/campaigns", gin.H{
		"title":       "Coupon",
		"createdBy":   "admin-1",
		"creatorRole": "manager",
		"active":      true,
		"mode":        "bulkAmount",
		"amount":      2.0,
		"productIds":  []string{"p1"},
		"stackable":   true,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestUpdateCampaignNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/internal/campaigns/ghost", gin.H{
		"title":       "Whatever",
		"createdBy":   "admin-1",
		"creatorRole": "manager",
		"mode":        "perItem",
		"items":       []gin.H{{"productId": "p1", "fixedPrice": 5.0}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeactivateCampaign(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutCampaign(globalDiscount("summer", 10, 5))

	w := env.do(t, http.MethodDelete, "/internal/campaigns/summer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.store.CampaignByID(context.Background(), "summer")
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestListCampaigns(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutCampaign(globalDiscount("low", 5, 1))
	env.store.PutCampaign(globalDiscount("high", 10, 9))

	w := env.do(t, http.MethodGet, "/internal/campaigns", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Campaigns []CampaignView `json:"campaigns"`
		Total     int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "high", resp.Campaigns[0].ID)
}
