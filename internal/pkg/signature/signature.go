// Package signature computes Paymentwall request signatures.
package signature

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	Version1 = 1
	Version2 = 2
	Version3 = 3

	// ParamName is the parameter carrying the signature itself.
	ParamName = "sig"
)

// PingbackV1Fields are the goods-API fields signed by version 1, in signing order.
var PingbackV1Fields = []string{"uid", "goodsid", "slength", "speriod", "type", "ref"}

// ParseVersion reads a sign_version value. Empty or unknown values fall back to version 1.
func ParseVersion(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Version1
	}
	switch v {
	case Version2, Version3:
		return v
	}
	return Version1
}

// Calculate signs params with secret. Versions 2 and 3 sign every parameter
// except sig sorted by key; version 1 signs only fields, in the given order,
// skipping the absent ones.
func Calculate(params url.Values, secret string, version int, fields []string) string {
	var b strings.Builder

	if version == Version2 || version == Version3 {
		for _, key := range sortedKeys(params) {
			if key == ParamName {
				continue
			}
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(params.Get(key))
		}
	} else {
		for _, key := range fields {
			if _, ok := params[key]; !ok {
				continue
			}
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(params.Get(key))
		}
	}
	b.WriteString(secret)

	if version == Version3 {
		sum := sha256.Sum256([]byte(b.String()))
		return hex.EncodeToString(sum[:])
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Equal compares two hex signatures in constant time.
func Equal(expected, actual string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(expected)), []byte(strings.ToLower(actual))) == 1
}

// sortedKeys orders keys the way nested parameters are sorted upstream:
// by base name first, then by the bracketed sub key ("a" < "a[x]" < "ab").
func sortedKeys(params url.Values) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		bi, si := splitNested(keys[i])
		bj, sj := splitNested(keys[j])
		if bi != bj {
			return bi < bj
		}
		return si < sj
	})
	return keys
}

func splitNested(key string) (base, sub string) {
	if i := strings.IndexByte(key, '['); i > 0 && strings.HasSuffix(key, "]") {
		return key[:i], key[i+1 : len(key)-1]
	}
	return key, ""
}
