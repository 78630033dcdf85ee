// Package signature implements the keyed-hash request signing scheme of the
// H5 payment gateway. The exact canonicalization is a protocol requirement:
// both our outbound order requests and the gateway's inbound notifications
// are signed as MD5(sorted "k=v" pairs joined by "&" + "&key=<secret>"),
// uppercase hex, with empty-valued fields left out.
package signature

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Codec signs field maps with a shared secret.
type Codec struct {
	secret string
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: secret}
}

// Sign canonicalizes the fields and returns the uppercase hex digest.
// Values may be strings or integers; nil and empty-string values are
// excluded from the canonical string, matching the gateway's rules.
func (c *Codec) Sign(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if stringify(fields[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(stringify(fields[k]))
	}
	b.WriteString("&key=")
	b.WriteString(c.secret)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Verify recomputes the signature over fields and compares it against the
// claimed one without early exit.
func (c *Codec) Verify(fields map[string]interface{}, claimed string) bool {
	expected := c.Sign(fields)
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(claimed)))
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// JSON decoding hands numbers over as float64; the gateway only
		// ever sends integral amounts.
		return strconv.FormatInt(int64(t), 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
