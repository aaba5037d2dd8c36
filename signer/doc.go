// Package signer models the people who sign a contract, how the provider
// reaches them, and the content hash that identifies a signer across a
// submission and its response.
package signer
