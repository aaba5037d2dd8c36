// Package signature authenticates inbound provider callbacks and signs
// messages relayed to the bus.
//
// The provider authenticates with a shared secret sent as HTTP Basic
// credentials with an empty password. Relayed messages can optionally carry
// an HMAC-SHA256 signature over "{timestamp}.{body}" so consumers can check
// that a message came from this relay.
package signature
