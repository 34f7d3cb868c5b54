package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tdminh/marketplace/internal/models"
	"github.com/tdminh/marketplace/internal/mykafka"
	"github.com/tdminh/marketplace/internal/payment"
	"github.com/tdminh/marketplace/internal/repo"
	"github.com/tdminh/marketplace/internal/service/cart"
	"github.com/tdminh/marketplace/internal/service/order"
)

// stubProvider stands in for the payment provider. It never reaches
// the network and counts how often capture is called.
type stubProvider struct {
	captures   int
	completed  bool
	failCreate bool
}

func (s *stubProvider) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*payment.ProviderOrder, error) {
	if s.failCreate {
		return nil, context.DeadlineExceeded
	}
	return &payment.ProviderOrder{Ref: "PP-STUB-1", ApproveURL: "https://provider.example/approve"}, nil
}

func (s *stubProvider) Capture(ctx context.Context, ref string) (*payment.CaptureResult, error) {
	s.captures++
	return &payment.CaptureResult{Ref: ref, Completed: s.completed}, nil
}

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Cart     *CartHandler
	Order    *OrderHandler
	Product  *ProductHandler
	Provider *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.ContactInfo{},
		&models.PaymentMethod{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentTransaction{},
	))

	catalog := &repo.CatalogRepo{DB: db}
	carts := &repo.CartRepo{DB: db}
	orders := &repo.OrderRepo{DB: db}

	cartSvc := &cart.Service{Carts: carts, Catalog: catalog}
	provider := &stubProvider{completed: true}
	orderSvc := &order.Service{
		DB:          db,
		Catalog:     catalog,
		Orders:      orders,
		Carts:       carts,
		Provider:    provider,
		ShippingFee: decimal.NewFromInt(10),
		LockTimeout: 3 * time.Second,
	}

	prod := &mykafka.Producer{}

	return &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       db,
		Cart:     &CartHandler{Svc: cartSvc, Producer: prod},
		Order:    &OrderHandler{Svc: orderSvc, CartSvc: cartSvc, Provider: provider, Producer: prod, Currency: "USD"},
		Product:  &ProductHandler{DB: db, Producer: prod},
		Provider: provider,
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// asUser injects the identity the auth middleware would have set.
func asUser(c echo.Context, id uint) {
	c.Set("userID", id)
}

func asAdmin(c echo.Context, id uint) {
	c.Set("userID", id)
	c.Set("role", "admin")
}

func (env *testEnv) seedUser(id uint) models.User {
	u := models.User{
		ID:           id,
		Username:     fmt.Sprintf("user%d", id),
		Email:        fmt.Sprintf("user%d@example.com", id),
		PasswordHash: "x",
		Role:         "user",
	}
	require.NoError(env.T, env.DB.Create(&u).Error)
	return u
}

func (env *testEnv) seedProduct(price int64, qty uint) models.Product {
	p := models.Product{
		SellerID:   99,
		CategoryID: 1,
		Title:      "test product",
		Price:      decimal.NewFromInt(price),
		Quantity:   qty,
		Status:     models.ProductApproved,
	}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return p
}

func (env *testEnv) seedCartItem(userID, productID, qty uint) {
	crt, err := (&repo.CartRepo{DB: env.DB}).GetOrCreate(context.Background(), userID)
	require.NoError(env.T, err)
	require.NoError(env.T, env.DB.Create(&models.CartItem{
		CartID:    crt.ID,
		ProductID: productID,
		Quantity:  qty,
		AddedAt:   time.Now().UTC(),
	}).Error)
}

func requireHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, code, he.Code)
	return he
}

var testContact = order.Contact{
	RecipientName: "Jordan Reyes",
	PhoneNumber:   "+84900000001",
	StreetAddress: "12 Riverside Rd",
	City:          "Da Nang",
}
