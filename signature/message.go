package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// SignMessage computes the signature for a relayed message body.
// The content signed is "{timestamp}.{body}" and the result has the form
// "v1=<hex>".
func SignMessage(body []byte, key string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyMessage reports whether sig is the signature of body at timestamp.
func VerifyMessage(body []byte, key string, timestamp int64, sig string) bool {
	expected := SignMessage(body, key, timestamp)
	return hmac.Equal([]byte(expected), []byte(sig))
}
