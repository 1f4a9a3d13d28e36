package pingback

import (
	"errors"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pwgateway/internal/pkg/signature"
)

const testSecret = "s3cr3t"

func signedParams(kv map[string]string, version int) url.Values {
	params := url.Values{}
	for k, v := range kv {
		params.Set(k, v)
	}
	if version != signature.Version1 {
		params.Set("sign_version", strconv.Itoa(version))
	}
	params.Set("sig", signature.Calculate(params, testSecret, version, signature.PingbackV1Fields))
	return params
}

func newTestValidator(t *testing.T, strict bool, allowed ...string) *Validator {
	t.Helper()
	v, err := NewValidator(ValidatorConfig{SecretKey: testSecret, StrictIP: strict, AllowedIPs: allowed})
	require.NoError(t, err)
	return v
}

func TestValidator_ValidSignatures(t *testing.T) {
	v := newTestValidator(t, false)

	for _, version := range []int{signature.Version1, signature.Version2, signature.Version3} {
		params := signedParams(map[string]string{
			"uid": "7", "goodsid": "42", "type": "0", "ref": "TX-9", "initial_ref": "T1", "reason": "",
		}, version)

		event, err := v.Validate(params, "10.0.0.1")
		require.NoError(t, err, "version %d", version)
		assert.Equal(t, "42", event.GoodsID)
		assert.Equal(t, "TX-9", event.ReferenceID)
		assert.Equal(t, "7", event.UserID)
		assert.Equal(t, "T1", event.InitialRef)
		assert.Equal(t, EventDeliverable, event.Type)
		assert.Equal(t, "10.0.0.1", event.SourceIP)
	}
}

func TestValidator_Classification(t *testing.T) {
	v := newTestValidator(t, false)

	tests := []struct {
		rawType string
		want    EventType
	}{
		{"0", EventDeliverable},
		{"1", EventDeliverable},
		{"201", EventDeliverable},
		{"2", EventCancelable},
		{"202", EventCancelable},
		{"200", EventUnderReview},
	}
	for _, tt := range tests {
		t.Run(tt.rawType, func(t *testing.T) {
			params := signedParams(map[string]string{"uid": "1", "goodsid": "42", "type": tt.rawType, "ref": "R"}, signature.Version2)
			event, err := v.Validate(params, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.Type)
			assert.Equal(t, tt.rawType, event.RawType)
		})
	}
}

func TestValidator_UnclassifiedType(t *testing.T) {
	v := newTestValidator(t, false)

	for _, rawType := range []string{"12", "13", "14", "203", "abc"} {
		params := signedParams(map[string]string{"uid": "1", "goodsid": "42", "type": rawType, "ref": "R"}, signature.Version2)
		_, err := v.Validate(params, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnclassifiedEvent)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Unsupported pingback type: "+rawType, verr.Summary())
	}
}

func TestValidator_MissingParameters(t *testing.T) {
	v := newTestValidator(t, false)

	params := url.Values{"uid": {"1"}, "type": {"0"}}
	_, err := v.Validate(params, "")
	require.ErrorIs(t, err, ErrMissingParameter)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t,
		"Parameter goodsid is missing\nParameter ref is missing\nParameter sig is missing\nMissing parameters",
		verr.Summary())
}

func TestValidator_WrongSignature(t *testing.T) {
	v := newTestValidator(t, false)

	params := signedParams(map[string]string{"uid": "1", "goodsid": "42", "type": "0", "ref": "TX-9"}, signature.Version2)
	params.Set("ref", "TX-10")

	_, err := v.Validate(params, "")
	require.ErrorIs(t, err, ErrInvalidSignature)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Wrong signature", verr.Summary())
}

func TestValidator_StrictIP(t *testing.T) {
	params := signedParams(map[string]string{"uid": "1", "goodsid": "42", "type": "0", "ref": "TX-9"}, signature.Version3)

	strict := newTestValidator(t, true)
	_, err := strict.Validate(params, "174.36.92.186")
	assert.NoError(t, err)
	_, err = strict.Validate(params, "216.127.71.44")
	assert.NoError(t, err)

	_, err = strict.Validate(params, "8.8.8.8")
	require.ErrorIs(t, err, ErrUnauthorizedSource)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "IP address is not whitelisted", verr.Summary())

	lenient := newTestValidator(t, false)
	_, err = lenient.Validate(params, "8.8.8.8")
	assert.NoError(t, err)
}

func TestValidator_IsAllowedIP(t *testing.T) {
	v := newTestValidator(t, true, "10.1.2.3", "192.168.0.0/16")

	assert.True(t, v.IsAllowedIP("10.1.2.3"))
	assert.True(t, v.IsAllowedIP("::ffff:10.1.2.3"))
	assert.True(t, v.IsAllowedIP("192.168.44.5"))
	assert.False(t, v.IsAllowedIP("10.1.2.4"))
	assert.False(t, v.IsAllowedIP("not-an-ip"))
	assert.False(t, v.IsAllowedIP("174.36.92.186"), "custom list replaces the defaults")
}

func TestNewValidator_RejectsMalformedAllowList(t *testing.T) {
	_, err := NewValidator(ValidatorConfig{AllowedIPs: []string{"10.0.0.0/99"}})
	assert.Error(t, err)

	_, err = NewValidator(ValidatorConfig{AllowedIPs: []string{"nope"}})
	assert.Error(t, err)
}
