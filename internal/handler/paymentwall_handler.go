package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pwgateway/internal/models"
	"pwgateway/internal/pingback"
	"pwgateway/internal/repository"
	"pwgateway/internal/widget"
)

// routingParams select the endpoint and are not part of the signed pingback.
var routingParams = []string{"action", "wc-api"}

// PaymentwallHandler serves the Paymentwall pingback and the checkout helpers
// polled by the storefront.
type PaymentwallHandler struct {
	service              *pingback.Service
	store                *repository.Store
	widgets              *widget.Builder
	storeBaseURL         string
	subscriptionsEnabled bool
	logger               *zap.Logger
}

type PaymentwallOptions struct {
	StoreBaseURL         string
	SubscriptionsEnabled bool
}

func NewPaymentwallHandler(
	service *pingback.Service,
	store *repository.Store,
	widgets *widget.Builder,
	opts PaymentwallOptions,
	logger *zap.Logger,
) *PaymentwallHandler {
	return &PaymentwallHandler{
		service:              service,
		store:                store,
		widgets:              widgets,
		storeBaseURL:         opts.StoreBaseURL,
		subscriptionsEnabled: opts.SubscriptionsEnabled,
		logger:               logger,
	}
}

type orderStatusResponse struct {
	Status bool   `json:"status"`
	URL    string `json:"url"`
}

type widgetResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ── Pingback ─────────────────────────────────────────────────────────

// IPN handles a pingback and writes the plain-text acknowledgement.
func (h *PaymentwallHandler) IPN(c echo.Context) error {
	resp := h.service.Handle(c.Request().Context(), pingbackParams(c), c.RealIP())
	return c.String(resp.Status, resp.Body)
}

// HandleAction dispatches the single-endpoint form used by the storefront
// plugin: ?action=ipn or ?action=ajax.
func (h *PaymentwallHandler) HandleAction(c echo.Context) error {
	switch c.QueryParam("action") {
	case "ipn":
		return h.IPN(c)
	case "ajax":
		return h.orderStatus(c, c.FormValue("order_id"))
	}
	return c.String(http.StatusBadRequest, "Unknown action")
}

func pingbackParams(c echo.Context) url.Values {
	params := url.Values{}
	for k, v := range c.QueryParams() {
		params[k] = append([]string(nil), v...)
	}

	req := c.Request()
	if req.Method == http.MethodPost {
		if err := req.ParseForm(); err == nil {
			for k, v := range req.PostForm {
				if _, ok := params[k]; !ok {
					params[k] = append([]string(nil), v...)
				}
			}
		}
	}

	for _, k := range routingParams {
		delete(params, k)
	}
	return params
}

// ── Order status ─────────────────────────────────────────────────────

// Status reports whether an order has been paid and where to send the customer.
func (h *PaymentwallHandler) Status(c echo.Context) error {
	return h.orderStatus(c, c.Param("id"))
}

func (h *PaymentwallHandler) orderStatus(c echo.Context, rawID string) error {
	result := orderStatusResponse{}

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusOK, result)
	}

	order, err := h.store.Orders().FindByID(c.Request().Context(), uint(id))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Error("Failed to load order", zap.Uint64("order_id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return c.JSON(http.StatusOK, result)
	}

	if isPaid(order.Status) {
		result.Status = true
		result.URL = h.orderReceivedURL(order)
	}
	return c.JSON(http.StatusOK, result)
}

func isPaid(status models.OrderStatus) bool {
	return status == models.OrderProcessing || status == models.OrderCompleted
}

func (h *PaymentwallHandler) orderReceivedURL(order *models.Order) string {
	return fmt.Sprintf("%s/checkout/order-received/%d?key=%s",
		h.storeBaseURL, order.ID, url.QueryEscape(order.OrderKey))
}

// ── Widget ───────────────────────────────────────────────────────────

// Widget returns the signed payment widget URL of an unpaid order. The
// caller proves ownership with the order key.
func (h *PaymentwallHandler) Widget(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusNotFound, errorResponse{Error: pingback.InvalidOrderMessage})
	}

	order, err := h.store.Orders().FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: pingback.InvalidOrderMessage})
		}
		h.logger.Error("Failed to load order", zap.Uint64("order_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	if c.QueryParam("key") != order.OrderKey {
		return c.JSON(http.StatusNotFound, errorResponse{Error: pingback.InvalidOrderMessage})
	}
	if !order.Status.NeedsPayment() {
		return c.JSON(http.StatusConflict, errorResponse{Error: "order is already paid"})
	}

	goods := widget.OrderGoods(order)
	if h.subscriptionsEnabled {
		subs, err := h.store.GetSubscriptionsForOrder(ctx, order.ID)
		if err != nil {
			h.logger.Error("Failed to load subscriptions", zap.Uint("order_id", order.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		// Only one subscription per order is supported.
		if len(subs) > 0 {
			goods = widget.SubscriptionGoods(order, &subs[0])
		}
	}

	widgetURL, err := h.widgets.URL(order, goods, h.orderReceivedURL(order))
	if err != nil {
		h.logger.Error("Failed to build widget", zap.Uint("order_id", order.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "payment widget unavailable"})
	}
	return c.JSON(http.StatusOK, widgetResponse{URL: widgetURL})
}
