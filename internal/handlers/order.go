package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tdminh/marketplace/internal/logging"
	"github.com/tdminh/marketplace/internal/models"
	"github.com/tdminh/marketplace/internal/mykafka"
	"github.com/tdminh/marketplace/internal/payment"
	"github.com/tdminh/marketplace/internal/service/cart"
	"github.com/tdminh/marketplace/internal/service/order"
	"github.com/tdminh/marketplace/internal/service/token"
	"github.com/tdminh/marketplace/internal/util"
)

type OrderHandler struct {
	Svc      *order.Service
	CartSvc  *cart.Service
	Provider payment.Provider
	Producer *mykafka.Producer
	Currency string
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type checkoutRequest struct {
	PaymentMethodID uint          `json:"payment_method_id"`
	Contact         order.Contact `json:"contact"`
}

// CreateOrder checks the buyer's cart out as an offline-payment order.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ord, err := h.Svc.CheckoutCart(ctx, userID, req.PaymentMethodID, req.Contact)
	if err != nil {
		he := httpError(err)
		l.Warn("create_order_error", "status", he.Code, "error", err)
		return he
	}

	l.Info("create_order_success", "orderID", ord.ID)
	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": ord.ID,
		"total":   ord.TotalAmount,
	})
	return c.JSON(http.StatusCreated, ord)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	orders, err := h.Svc.List(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	ord, err := h.Svc.Get(c.Request().Context(), uint(id))
	if err != nil {
		return httpError(err)
	}
	if ord.BuyerID != userID {
		role, _ := c.Get("role").(string)
		if role != "admin" {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ord, err := h.Svc.UpdateStatus(c.Request().Context(), uint(id), req.Status)
	if err != nil {
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":    "order_status_changed",
		"userID":  ord.BuyerID,
		"orderID": ord.ID,
		"status":  ord.Status,
	})
	return c.JSON(http.StatusOK, ord)
}

// CreateProviderOrder authorizes the current cart total with the
// payment provider and hands the approval URL back to the client.
// Nothing is reserved yet; stock commitment happens at capture.
func (h *OrderHandler) CreateProviderOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_provider_order")

	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	total, err := h.Svc.CartTotal(ctx, userID)
	if err != nil {
		return httpError(err)
	}

	po, err := h.Provider.CreateOrder(ctx, total, h.Currency)
	if err != nil {
		l.Error("provider_order_error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider rejected the order")
	}

	l.Info("provider_order_created", "ref", po.Ref)
	return c.JSON(http.StatusCreated, po)
}

// CaptureProviderOrder finalizes an approved provider order: capture
// the funds, then create the order from the cart under the usual stock
// discipline. Safe to call more than once with the same reference.
func (h *OrderHandler) CaptureProviderOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.capture_provider_order")

	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	ref := c.Param("ref")

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	crt, err := h.CartSvc.GetOrCreate(ctx, userID)
	if err != nil {
		return httpError(err)
	}
	lines := make([]order.Line, 0, len(crt.Items))
	for _, it := range crt.Items {
		lines = append(lines, order.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	ord, created, err := h.Svc.Capture(ctx, userID, req.PaymentMethodID, ref, req.Contact, lines)
	if err != nil {
		he := httpError(err)
		l.Warn("capture_error", "status", he.Code, "ref", ref, "error", err)
		return he
	}

	// A replayed callback consumed nothing, so whatever cart the buyer
	// has built since must survive it.
	if created {
		if _, err := h.CartSvc.Clear(ctx, userID); err != nil {
			l.Error("cart_clear_error", "error", err)
		}
	}

	l.Info("capture_success", "ref", ref, "orderID", ord.ID)
	h.publish(c, map[string]any{
		"type":    "order_captured",
		"userID":  userID,
		"orderID": ord.ID,
		"ref":     ref,
	})
	return c.JSON(http.StatusCreated, ord)
}
