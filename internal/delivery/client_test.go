package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pwgateway/internal/models"
	"pwgateway/internal/pkg/httpclient"
)

func TestClient_Confirm(t *testing.T) {
	var (
		got    url.Values
		apiKey string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		apiKey = r.Header.Get("X-ApiKey")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":1}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, SecretKey: "sk", TestMode: true}, zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }

	order := &models.Order{
		ID:                42,
		BillingEmail:      "jane@example.com",
		ShippingFirstName: "Jane",
		ShippingLastName:  "Doe",
		ShippingCountry:   "US",
		ShippingStreet:    "1 Main St",
		ShippingState:     "TX",
		ShippingZip:       "73301",
		ShippingCity:      "Austin",
	}
	require.NoError(t, c.Confirm(context.Background(), order, "TX-9"))

	assert.Equal(t, "sk", apiKey)
	assert.Equal(t, "TX-9", got.Get("payment_id"))
	assert.Equal(t, "digital", got.Get("type"))
	assert.Equal(t, "delivered", got.Get("status"))
	assert.Equal(t, "2026/05/04 03:02:01", got.Get("estimated_delivery_datetime"))
	assert.Equal(t, "yes", got.Get("refundable"))
	assert.Equal(t, "Item will be delivered via email by 2026/05/04 03:02:01", got.Get("details"))
	assert.Equal(t, "jane@example.com", got.Get("shipping_address[email]"))
	assert.Equal(t, "Austin", got.Get("shipping_address[city]"))
	assert.Equal(t, "73301", got.Get("shipping_address[zip]"))
	assert.Equal(t, "none", got.Get("reason"))
	assert.Equal(t, "1", got.Get("is_test"))
}

func TestClient_ConfirmRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, SecretKey: "wrong"}, zap.NewNop())
	err := c.Confirm(context.Background(), &models.Order{ID: 1}, "TX-1")
	require.Error(t, err)

	var statusErr *httpclient.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Status)
	assert.Equal(t, "bad key", statusErr.Body)
}
