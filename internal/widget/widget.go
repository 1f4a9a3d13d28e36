// Package widget builds signed Paymentwall widget URLs for checkout orders.
package widget

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"pwgateway/internal/models"
	"pwgateway/internal/pkg/signature"
)

const (
	BaseURL = "https://api.paymentwall.com/api/subscription"

	ProductTypeFixed        = "fixed"
	ProductTypeSubscription = "subscription"

	integrationModule = "woocommerce"
)

var ErrMissingProjectKey = errors.New("widget: project key is not configured")

// Product is one Paymentwall goods entry. Trial, when set, is charged first
// and the product itself becomes the post-trial product.
type Product struct {
	ID           string
	Amount       float64
	CurrencyCode string
	Name         string
	Type         string
	PeriodLength int
	PeriodType   string
	Recurring    bool
	Trial        *Product
}

// Goods is the product description of an order plus the widget flag that
// goes with it.
type Goods struct {
	Product                   Product
	ShowPostTrialNonRecurring bool
}

type Config struct {
	ProjectKey  string
	SecretKey   string
	Widget      string
	TestMode    bool
	SignVersion int
}

// Builder signs widget URLs.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	if cfg.SignVersion != signature.Version2 {
		cfg.SignVersion = signature.Version3
	}
	return &Builder{cfg: cfg}
}

// OrderGoods describes a standalone order as a single fixed product.
func OrderGoods(order *models.Order) Goods {
	return Goods{Product: Product{
		ID:           orderRef(order),
		Amount:       order.Total,
		CurrencyCode: order.Currency,
		Name:         "Order #" + orderRef(order),
		Type:         ProductTypeFixed,
	}}
}

// SubscriptionGoods describes the first payment of a subscription order.
// A trial is charged as its own period; without a trial, an order total that
// differs from the recurring total is a setup fee charged over one billing
// period; otherwise the first payment is the recurring product itself.
func SubscriptionGoods(order *models.Order, sub *models.Subscription) Goods {
	id := orderRef(order)
	product := Product{
		ID:           id,
		Amount:       sub.RecurringTotal,
		CurrencyCode: order.Currency,
		Name:         fmt.Sprintf("Order #%s - recurring payment", id),
		Type:         ProductTypeSubscription,
		PeriodLength: sub.BillingInterval,
		PeriodType:   sub.BillingPeriod,
		Recurring:    true,
	}
	first := &Product{
		ID:           id,
		Amount:       order.Total,
		CurrencyCode: order.Currency,
		Name:         fmt.Sprintf("Order #%s - first time payment", id),
		Type:         ProductTypeSubscription,
		PeriodType:   sub.TrialPeriod,
		Recurring:    true,
	}

	goods := Goods{}
	switch {
	case sub.HasTrial():
		first.PeriodLength = max(int(sub.TrialEnd.Sub(sub.CreatedAt).Hours()/24), 1)
		goods.ShowPostTrialNonRecurring = order.Total == 0
	case !sameAmount(order.Total, sub.RecurringTotal):
		first.PeriodType = sub.BillingPeriod
		first.PeriodLength = sub.BillingInterval
	default:
		product.Name = first.Name
		first = nil
	}
	product.Trial = first
	goods.Product = product
	return goods
}

// URL returns the signed widget URL for an order. successURL is where the
// customer lands after paying.
func (b *Builder) URL(order *models.Order, goods Goods, successURL string) (string, error) {
	if b.cfg.ProjectKey == "" {
		return "", ErrMissingProjectKey
	}

	params := url.Values{}
	params.Set("key", b.cfg.ProjectKey)
	params.Set("uid", userID(order))
	params.Set("widget", b.cfg.Widget)
	setProduct(params, goods.Product)

	params.Set("email", order.BillingEmail)
	params.Set("integration_module", integrationModule)
	params.Set("test_mode", boolParam(b.cfg.TestMode))
	params.Set("show_post_trial_non_recurring", boolParam(goods.ShowPostTrialNonRecurring))
	if successURL != "" {
		params.Set("success_url", successURL)
	}
	setProfile(params, order)

	params.Set("sign_version", strconv.Itoa(b.cfg.SignVersion))
	params.Set("sign", signature.Calculate(params, b.cfg.SecretKey, b.cfg.SignVersion, nil))

	return BaseURL + "?" + params.Encode(), nil
}

func setProduct(params url.Values, product Product) {
	var postTrial *Product
	if product.Trial != nil {
		main := product
		postTrial = &main
		product = *product.Trial
	}

	params.Set("amount", formatAmount(product.Amount))
	params.Set("currencyCode", product.CurrencyCode)
	params.Set("ag_name", product.Name)
	params.Set("ag_external_id", product.ID)
	params.Set("ag_type", product.Type)

	if product.Type != ProductTypeSubscription {
		return
	}
	params.Set("ag_period_length", strconv.Itoa(product.PeriodLength))
	params.Set("ag_period_type", product.PeriodType)
	if product.Recurring {
		params.Set("ag_recurring", "1")
	}
	if postTrial != nil {
		params.Set("ag_trial", "1")
		params.Set("ag_post_trial_external_id", postTrial.ID)
		params.Set("ag_post_trial_period_length", strconv.Itoa(postTrial.PeriodLength))
		params.Set("ag_post_trial_period_type", postTrial.PeriodType)
		params.Set("ag_post_trial_name", postTrial.Name)
		params.Set("post_trial_amount", formatAmount(postTrial.Amount))
		params.Set("post_trial_currencyCode", postTrial.CurrencyCode)
	}
}

func setProfile(params url.Values, order *models.Order) {
	fields := map[string]string{
		"customer[firstname]": order.BillingFirstName,
		"customer[lastname]":  order.BillingLastName,
		"customer[country]":   order.ShippingCountry,
		"customer[state]":     order.ShippingState,
		"customer[city]":      order.ShippingCity,
		"customer[zip]":       order.ShippingZip,
		"customer[address]":   order.ShippingStreet,
		"customer[username]":  order.BillingEmail,
	}
	for k, v := range fields {
		if v != "" {
			params.Set(k, v)
		}
	}
}

// userID identifies the payer: the store customer, or the billing email for guests.
func userID(order *models.Order) string {
	if order.CustomerID != "" {
		return order.CustomerID
	}
	return order.BillingEmail
}

func orderRef(order *models.Order) string {
	return strconv.FormatUint(uint64(order.ID), 10)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func sameAmount(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func boolParam(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
