package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tdminh/marketplace/internal/models"
)

func (env *testEnv) seedProductWithStatus(status models.ProductStatus) models.Product {
	p := models.Product{
		SellerID:   99,
		CategoryID: 1,
		Title:      "test product",
		Price:      decimal.NewFromInt(100),
		Quantity:   10,
		Status:     status,
	}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return p
}

func TestListAllProductsModerationView(t *testing.T) {
	env := newTestEnv(t)
	approved := env.seedProductWithStatus(models.ProductApproved)
	pending := env.seedProductWithStatus(models.ProductPending)
	env.seedProductWithStatus(models.ProductRejected)

	type listResponse struct {
		Data []models.Product `json:"data"`
	}

	// The moderation view sees every status.
	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/admin/products", nil)
	require.NoError(t, env.Product.ListAllProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var all listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all.Data, 3)

	// ?status= narrows to the moderation queue.
	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/admin/products?status=0", nil)
	require.NoError(t, env.Product.ListAllProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var queue listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue.Data, 1)
	require.Equal(t, pending.ID, queue.Data[0].ID)
	require.Equal(t, models.ProductPending, queue.Data[0].Status)

	_, c = env.doJSONRequest(http.MethodGet, "/api/v1/admin/products?status=7", nil)
	requireHTTPError(t, env.Product.ListAllProducts(c), http.StatusBadRequest)

	// The public listing stays approved-only.
	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/products", nil)
	require.NoError(t, env.Product.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var public listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	require.Len(t, public.Data, 1)
	require.Equal(t, approved.ID, public.Data[0].ID)
}

func TestGetProductSurvivesViewCountFailure(t *testing.T) {
	env := newTestEnv(t)
	prod := env.seedProductWithStatus(models.ProductApproved)

	require.NoError(t, env.DB.Exec(
		`CREATE TRIGGER block_view_count BEFORE UPDATE OF view_count ON products
		 BEGIN SELECT RAISE(ABORT, 'blocked'); END`).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Product.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, prod.ID, resp.ID)
}
