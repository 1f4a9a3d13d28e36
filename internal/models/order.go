package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderOnHold     OrderStatus = "on-hold"
	OrderCancelled  OrderStatus = "cancelled"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
)

// NeedsPayment reports whether a payment can still complete the order.
func (s OrderStatus) NeedsPayment() bool {
	switch s {
	case OrderPending, OrderOnHold, OrderFailed, OrderCancelled:
		return true
	}
	return false
}

const (
	CreatedViaCheckout = "checkout"
	CreatedViaRenewal  = "renewal"
)

// Order maps to the `orders` table.
type Order struct {
	ID                   uint        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderKey             string      `gorm:"column:order_key;size:64;uniqueIndex" json:"order_key"`
	Status               OrderStatus `gorm:"column:status;size:30;index" json:"status"`
	Currency             string      `gorm:"column:currency;size:8" json:"currency"`
	Total                float64     `gorm:"column:total;type:decimal(12,2)" json:"total"`
	CustomerID           string      `gorm:"column:customer_id;size:64" json:"customer_id"`
	BillingEmail         string      `gorm:"column:billing_email;size:320" json:"billing_email"`
	BillingFirstName     string      `gorm:"column:billing_first_name;size:200" json:"billing_first_name"`
	BillingLastName      string      `gorm:"column:billing_last_name;size:200" json:"billing_last_name"`
	ShippingFirstName    string      `gorm:"column:shipping_first_name;size:200" json:"shipping_first_name"`
	ShippingLastName     string      `gorm:"column:shipping_last_name;size:200" json:"shipping_last_name"`
	ShippingCountry      string      `gorm:"column:shipping_country;size:8" json:"shipping_country"`
	ShippingStreet       string      `gorm:"column:shipping_street;size:500" json:"shipping_street"`
	ShippingState        string      `gorm:"column:shipping_state;size:200" json:"shipping_state"`
	ShippingZip          string      `gorm:"column:shipping_zip;size:40" json:"shipping_zip"`
	ShippingCity         string      `gorm:"column:shipping_city;size:200" json:"shipping_city"`
	PaymentMethod        string      `gorm:"column:payment_method;size:100" json:"payment_method"`
	TransactionID        string      `gorm:"column:transaction_id;size:255;index" json:"transaction_id"`
	LinkageToken         string      `gorm:"column:linkage_token;size:255;index" json:"linkage_token"`
	ParentSubscriptionID *uint       `gorm:"column:parent_subscription_id;index" json:"parent_subscription_id,omitempty"`
	CreatedVia           string      `gorm:"column:created_via;size:30" json:"created_via"`
	Virtual              bool        `gorm:"column:virtual;default:false" json:"virtual"`
	PaidAt               *time.Time  `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt            time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// PaidStatus is the status a completed payment moves the order to. Orders
// without anything to ship skip processing.
func (o *Order) PaidStatus() OrderStatus {
	if o.Virtual {
		return OrderCompleted
	}
	return OrderProcessing
}

const (
	NoteEntityOrder        = "order"
	NoteEntitySubscription = "subscription"
)

// Note is an audit trail entry attached to an order or a subscription.
type Note struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EntityType string    `gorm:"column:entity_type;size:30;index:idx_notes_entity,priority:1" json:"entity_type"`
	EntityID   uint      `gorm:"column:entity_id;index:idx_notes_entity,priority:2" json:"entity_id"`
	Content    string    `gorm:"column:content;type:text" json:"content"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Note) TableName() string {
	return "notes"
}
