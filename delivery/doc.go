// Package delivery relays queued webhook callbacks to the message bus.
//
// The receive side stores each authenticated callback as a Message in a
// Queue without parsing it. The Engine claims visible messages, parses
// them, archives signed contracts in the BlobStore, publishes an Envelope
// on the Bus and acknowledges the message. Claims expire, so a worker that
// dies between claim and acknowledgement leaves the message to be claimed
// again: delivery is at least once.
package delivery
