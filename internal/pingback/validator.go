package pingback

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pwgateway/internal/pkg/signature"
)

// DefaultAllowedIPs is the published Paymentwall pingback egress list.
var DefaultAllowedIPs = []string{
	"174.36.92.186",
	"174.36.96.66",
	"174.36.92.187",
	"174.36.92.192",
	"174.37.14.28",
	"216.127.71.0/24",
}

const (
	msgMissingParameters = "Missing parameters"
	msgIPNotWhitelisted  = "IP address is not whitelisted"
	msgWrongSignature    = "Wrong signature"
)

// ValidatorConfig carries the project secret and source checks.
type ValidatorConfig struct {
	SecretKey string
	// StrictIP rejects pingbacks from addresses outside AllowedIPs.
	StrictIP bool
	// AllowedIPs holds single addresses and CIDR ranges. Empty means DefaultAllowedIPs.
	AllowedIPs []string
}

// Validator authenticates and classifies inbound pingbacks.
type Validator struct {
	secret   string
	strictIP bool
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
	validate *validator.Validate
}

type requiredParams struct {
	UID     string `param:"uid" validate:"required"`
	GoodsID string `param:"goodsid" validate:"required"`
	Type    string `param:"type" validate:"required"`
	Ref     string `param:"ref" validate:"required"`
	Sig     string `param:"sig" validate:"required"`
}

// NewValidator builds a validator. It fails on a malformed allow-list entry.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	v := &Validator{
		secret:   cfg.SecretKey,
		strictIP: cfg.StrictIP,
		addrs:    make(map[netip.Addr]struct{}),
		validate: validator.New(),
	}
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("param")
	})

	allowed := cfg.AllowedIPs
	if len(allowed) == 0 {
		allowed = DefaultAllowedIPs
	}
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid allowed range %q: %w", entry, err)
			}
			v.prefixes = append(v.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed ip %q: %w", entry, err)
		}
		v.addrs[addr.Unmap()] = struct{}{}
	}

	return v, nil
}

// Validate checks required parameters, the source address (strict mode) and
// the signature, then classifies the event. Any failure is a *ValidationError.
func (v *Validator) Validate(params url.Values, sourceIP string) (*PaymentEvent, error) {
	if missing := v.missingParams(params); len(missing) > 0 {
		messages := make([]string, 0, len(missing)+1)
		for _, name := range missing {
			messages = append(messages, "Parameter "+name+" is missing")
		}
		messages = append(messages, msgMissingParameters)
		return nil, &ValidationError{Kind: ErrMissingParameter, Messages: messages}
	}

	if v.strictIP && !v.IsAllowedIP(sourceIP) {
		return nil, &ValidationError{Kind: ErrUnauthorizedSource, Messages: []string{msgIPNotWhitelisted}}
	}

	version := signature.ParseVersion(params.Get("sign_version"))
	expected := signature.Calculate(params, v.secret, version, signature.PingbackV1Fields)
	if !signature.Equal(expected, params.Get(signature.ParamName)) {
		return nil, &ValidationError{Kind: ErrInvalidSignature, Messages: []string{msgWrongSignature}}
	}

	rawType := params.Get("type")
	eventType := classify(rawType)
	if eventType == EventUnknown {
		return nil, &ValidationError{
			Kind:     ErrUnclassifiedEvent,
			Messages: []string{"Unsupported pingback type: " + rawType},
		}
	}

	signed := make(url.Values, len(params))
	for k, vals := range params {
		signed[k] = append([]string(nil), vals...)
	}

	return &PaymentEvent{
		GoodsID:     params.Get("goodsid"),
		ReferenceID: params.Get("ref"),
		UserID:      params.Get("uid"),
		Type:        eventType,
		RawType:     rawType,
		InitialRef:  params.Get("initial_ref"),
		Reason:      params.Get("reason"),
		SourceIP:    sourceIP,
		Params:      signed,
	}, nil
}

// IsAllowedIP reports whether ip is on the allow-list.
func (v *Validator) IsAllowedIP(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if _, ok := v.addrs[addr]; ok {
		return true
	}
	for _, prefix := range v.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (v *Validator) missingParams(params url.Values) []string {
	p := requiredParams{
		UID:     params.Get("uid"),
		GoodsID: params.Get("goodsid"),
		Type:    params.Get("type"),
		Ref:     params.Get("ref"),
		Sig:     params.Get(signature.ParamName),
	}

	err := v.validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return missing
}
