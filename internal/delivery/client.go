// Package delivery reports fulfilled orders to the Paymentwall Delivery API.
package delivery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pwgateway/internal/models"
	"pwgateway/internal/pkg/httpclient"
)

const (
	DefaultURL = "https://api.paymentwall.com/api/delivery"

	timeLayout = "2006/01/02 15:04:05"
)

type Config struct {
	URL       string
	SecretKey string
	TestMode  bool
	Timeout   time.Duration
}

// Client posts delivery confirmations.
type Client struct {
	url      string
	testMode bool
	http     *httpclient.Client
	logger   *zap.Logger
	now      func() time.Time
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		url:      cfg.URL,
		testMode: cfg.TestMode,
		http:     httpclient.New().WithTimeout(cfg.Timeout).WithHeader("X-ApiKey", cfg.SecretKey),
		logger:   logger,
		now:      time.Now,
	}
}

// Confirm tells Paymentwall that the goods of order, paid with referenceID, were delivered.
func (c *Client) Confirm(ctx context.Context, order *models.Order, referenceID string) error {
	if _, err := c.http.PostForm(ctx, c.url, c.form(order, referenceID)); err != nil {
		return fmt.Errorf("delivery confirmation for order %d: %w", order.ID, err)
	}
	c.logger.Info("Delivery confirmed",
		zap.Uint("order_id", order.ID),
		zap.String("ref", referenceID),
	)
	return nil
}

func (c *Client) form(order *models.Order, referenceID string) map[string]string {
	now := c.now().Format(timeLayout)
	isTest := "0"
	if c.testMode {
		isTest = "1"
	}
	return map[string]string{
		"payment_id":                  referenceID,
		"type":                        "digital",
		"status":                      "delivered",
		"estimated_delivery_datetime": now,
		"estimated_update_datetime":   now,
		"refundable":                  "yes",
		"details":                     "Item will be delivered via email by " + now,
		"shipping_address[email]":     order.BillingEmail,
		"shipping_address[firstname]": order.ShippingFirstName,
		"shipping_address[lastname]":  order.ShippingLastName,
		"shipping_address[country]":   order.ShippingCountry,
		"shipping_address[street]":    order.ShippingStreet,
		"shipping_address[state]":     order.ShippingState,
		"shipping_address[zip]":       order.ShippingZip,
		"shipping_address[city]":      order.ShippingCity,
		"reason":                      "none",
		"is_test":                     isTest,
	}
}
