package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdminh/marketplace/internal/models"
)

func TestGetCartCreatesEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/cart", nil)
	asUser(c, 1)
	require.NoError(t, env.Cart.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint(1), resp.UserID)
	require.Empty(t, resp.Items)
}

func TestCartRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/cart", nil)
	err := env.Cart.GetCart(c)
	requireHTTPError(t, err, http.StatusUnauthorized)
}

func TestAddItemToCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)

	body := map[string]uint{"product_id": prod.ID, "quantity": 2}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items", body)
	asUser(c, 1)
	require.NoError(t, env.Cart.AddItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, prod.ID, resp.Items[0].ProductID)
	require.Equal(t, uint(2), resp.Items[0].Quantity)
}

func TestAddItemInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 3)

	body := map[string]uint{"product_id": prod.ID, "quantity": 5}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items", body)
	asUser(c, 1)

	he := requireHTTPError(t, env.Cart.AddItem(c), http.StatusBadRequest)
	msg, ok := he.Message.(map[string]any)
	require.True(t, ok)
	require.Equal(t, prod.ID, msg["product_id"])
}

func TestAddItemUnavailableProduct(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)

	body := map[string]uint{"product_id": 9999, "quantity": 1}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items", body)
	asUser(c, 1)
	requireHTTPError(t, env.Cart.AddItem(c), http.StatusBadRequest)
}

func TestUpdateItemSetsQuantity(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 5)

	body := map[string]uint{"product_id": prod.ID, "quantity": 2}
	rec, c := env.doJSONRequest(http.MethodPut, "/api/v1/cart/items", body)
	asUser(c, 1)
	require.NoError(t, env.Cart.UpdateItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, uint(2), resp.Items[0].Quantity)
}

func TestUpdateMissingItem(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)

	body := map[string]uint{"product_id": prod.ID, "quantity": 2}
	_, c := env.doJSONRequest(http.MethodPut, "/api/v1/cart/items", body)
	asUser(c, 1)
	requireHTTPError(t, env.Cart.UpdateItem(c), http.StatusNotFound)
}

func TestRemoveItemFromCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prod := env.seedProduct(100, 10)
	env.seedCartItem(1, prod.ID, 2)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/cart/items/1", nil)
	asUser(c, 1)
	c.SetParamNames("product_id")
	c.SetParamValues("1")
	require.NoError(t, env.Cart.RemoveItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}

func TestRemoveItemBadParam(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)

	_, c := env.doJSONRequest(http.MethodDelete, "/api/v1/cart/items/abc", nil)
	asUser(c, 1)
	c.SetParamNames("product_id")
	c.SetParamValues("abc")
	requireHTTPError(t, env.Cart.RemoveItem(c), http.StatusBadRequest)
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(1)
	prodA := env.seedProduct(100, 10)
	prodB := env.seedProduct(50, 10)
	env.seedCartItem(1, prodA.ID, 1)
	env.seedCartItem(1, prodB.ID, 2)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/cart", nil)
	asUser(c, 1)
	require.NoError(t, env.Cart.Clear(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}
