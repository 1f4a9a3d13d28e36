// Package pingback reconciles Paymentwall payment notifications against the
// order and subscription store.
package pingback

import "net/url"

// EventType classifies a validated pingback.
type EventType int

const (
	EventUnknown EventType = iota
	EventDeliverable
	EventCancelable
	EventUnderReview
)

func (t EventType) String() string {
	switch t {
	case EventDeliverable:
		return "deliverable"
	case EventCancelable:
		return "cancelable"
	case EventUnderReview:
		return "under-review"
	}
	return "unknown"
}

// Paymentwall pingback type codes.
const (
	typeRegular              = "0"
	typeGoodwill             = "1"
	typeNegative             = "2"
	typeRiskUnderReview      = "200"
	typeRiskReviewedAccepted = "201"
	typeRiskReviewedDeclined = "202"
)

func classify(rawType string) EventType {
	switch rawType {
	case typeRegular, typeGoodwill, typeRiskReviewedAccepted:
		return EventDeliverable
	case typeNegative, typeRiskReviewedDeclined:
		return EventCancelable
	case typeRiskUnderReview:
		return EventUnderReview
	}
	return EventUnknown
}

// PaymentEvent is a validated, classified pingback. It is built once per request and not mutated.
type PaymentEvent struct {
	GoodsID     string
	ReferenceID string
	UserID      string
	Type        EventType
	RawType     string
	InitialRef  string
	Reason      string
	SourceIP    string
	Params      url.Values
}

// IsDeliverable reports whether the payment should be fulfilled.
func (e *PaymentEvent) IsDeliverable() bool { return e.Type == EventDeliverable }

// IsCancelable reports whether the payment was reversed.
func (e *PaymentEvent) IsCancelable() bool { return e.Type == EventCancelable }

// IsUnderReview reports whether the payment is held by risk review.
func (e *PaymentEvent) IsUnderReview() bool { return e.Type == EventUnderReview }

// DedupKey identifies a notification for the replay cache.
func (e *PaymentEvent) DedupKey() string {
	return e.GoodsID + "|" + e.ReferenceID + "|" + e.RawType
}
