package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdminh/marketplace/internal/models"
	"github.com/tdminh/marketplace/internal/payment"
)

func TestCreateOrderFromCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prodA := env.seedProduct(100, 10)
	prodB := env.seedProduct(30, 10)
	env.seedCartItem(1, prodA.ID, 2)
	env.seedCartItem(1, prodB.ID, 1)

	body := map[string]any{"payment_method_id": 1, "contact": testContact}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body)
	asUser(c, 1)
	require.NoError(t, env.Order.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint(1), resp.BuyerID)
	require.Equal(t, models.OrderPending, resp.Status)
	require.Len(t, resp.Items, 2)
	// 2*100 + 1*30 + 10 shipping
	require.Equal(t, "240", resp.TotalAmount.String())

	var remaining int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Count(&remaining).Error)
	require.Zero(t, remaining, "checkout empties the cart")
}

func TestCreateOrderEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)

	body := map[string]any{"payment_method_id": 1, "contact": testContact}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body)
	asUser(c, 1)
	requireHTTPError(t, env.Order.CreateOrder(c), http.StatusBadRequest)
}

func TestCreateOrderInsufficientStockKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 1)
	env.seedCartItem(1, prod.ID, 3)

	body := map[string]any{"payment_method_id": 1, "contact": testContact}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body)
	asUser(c, 1)
	requireHTTPError(t, env.Order.CreateOrder(c), http.StatusBadRequest)

	var p models.Product
	require.NoError(t, env.DB.First(&p, prod.ID).Error)
	require.Equal(t, uint(1), p.Quantity, "failed checkout must not touch stock")

	var remaining int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining, "failed checkout must not empty the cart")
}

func TestGetOrderVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	env.seedUser(2)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 1)

	body := map[string]any{"payment_method_id": 1, "contact": testContact}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body)
	asUser(c, 1)
	require.NoError(t, env.Order.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Owner sees the order.
	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/orders/1", nil)
	asUser(c, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.GetOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Another buyer gets not found, not forbidden.
	_, c = env.doJSONRequest(http.MethodGet, "/api/v1/orders/1", nil)
	asUser(c, 2)
	c.SetParamNames("id")
	c.SetParamValues("1")
	requireHTTPError(t, env.Order.GetOrder(c), http.StatusNotFound)

	// An admin sees everything.
	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/orders/1", nil)
	asAdmin(c, 2)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.GetOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)

	for i := 0; i < 2; i++ {
		env.seedCartItem(1, prod.ID, 1)
		body := map[string]any{"payment_method_id": 1, "contact": testContact}
		rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body)
		asUser(c, 1)
		require.NoError(t, env.Order.CreateOrder(c))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/orders", nil)
	asUser(c, 1)
	require.NoError(t, env.Order.ListOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 1)

	body := map[string]any{"payment_method_id": 1, "contact": testContact}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", body)
	asUser(c, 1)
	require.NoError(t, env.Order.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Pending -> Shipped skips Processing and must be refused.
	_, c = env.doJSONRequest(http.MethodPatch, "/admin/orders/1/status",
		map[string]any{"status": models.OrderShipped})
	c.SetParamNames("id")
	c.SetParamValues("1")
	requireHTTPError(t, env.Order.UpdateStatus(c), http.StatusConflict)

	rec, c = env.doJSONRequest(http.MethodPatch, "/admin/orders/1/status",
		map[string]any{"status": models.OrderProcessing})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, models.OrderProcessing, resp.Status)
}

func TestCreateProviderOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 2)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders/paypal", nil)
	asUser(c, 1)
	require.NoError(t, env.Order.CreateProviderOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp payment.ProviderOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "PP-STUB-1", resp.Ref)
	require.NotEmpty(t, resp.ApproveURL)
}

func TestCreateProviderOrderUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 2)
	env.Provider.failCreate = true

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders/paypal", nil)
	asUser(c, 1)
	requireHTTPError(t, env.Order.CreateProviderOrder(c), http.StatusBadGateway)
}

func TestCaptureProviderOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 2)

	body := map[string]any{"payment_method_id": 1, "contact": testContact}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders/paypal/PP-STUB-1/capture", body)
	asUser(c, 1)
	c.SetParamNames("ref")
	c.SetParamValues("PP-STUB-1")
	require.NoError(t, env.Order.CaptureProviderOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var first models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, "210", first.TotalAmount.String())

	var txCount int64
	require.NoError(t, env.DB.Model(&models.PaymentTransaction{}).Count(&txCount).Error)
	require.Equal(t, int64(1), txCount)

	var remaining int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Count(&remaining).Error)
	require.Zero(t, remaining)

	// The buyer starts a new cart before the callback is replayed.
	env.seedCartItem(1, prod.ID, 3)

	// A replayed callback resolves to the same order without touching
	// the provider, stock, or the rebuilt cart.
	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/orders/paypal/PP-STUB-1/capture", body)
	asUser(c, 1)
	c.SetParamNames("ref")
	c.SetParamValues("PP-STUB-1")
	require.NoError(t, env.Order.CaptureProviderOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var second models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, env.Provider.captures)

	var items []models.CartItem
	require.NoError(t, env.DB.Find(&items).Error)
	require.Len(t, items, 1, "the replay must leave the new cart alone")
	require.Equal(t, uint(3), items[0].Quantity)

	var p models.Product
	require.NoError(t, env.DB.First(&p, prod.ID).Error)
	require.Equal(t, uint(8), p.Quantity)
}

func TestCaptureForeignReferenceHidden(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	env.seedUser(2)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 1)

	body := map[string]any{"payment_method_id": 1, "contact": testContact}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders/paypal/PP-STUB-9/capture", body)
	asUser(c, 1)
	c.SetParamNames("ref")
	c.SetParamValues("PP-STUB-9")
	require.NoError(t, env.Order.CaptureProviderOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Another buyer replaying the reference with an empty cart gets a
	// 404, not the first buyer's order.
	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/orders/paypal/PP-STUB-9/capture", body)
	asUser(c, 2)
	c.SetParamNames("ref")
	c.SetParamValues("PP-STUB-9")
	requireHTTPError(t, env.Order.CaptureProviderOrder(c), http.StatusNotFound)
}
