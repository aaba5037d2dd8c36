// Package value provides the validated primitives shared by contract
// construction: email addresses, mobile numbers, ISO country and postal
// codes, and signer nicknames.
//
// Reference data (blocked email domains, known top-level domains and
// country codes) is embedded at build time and loaded once.
package value
