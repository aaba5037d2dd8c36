// Package esignatures submits e-signature contract requests to a signing
// provider and relays the provider's status callbacks to an internal
// message bus.
//
// The outbound half lives in subpackages: contract builds a validated
// request, and sender submits it and correlates the returned signer IDs.
//
// The inbound half is the Relay in this package. Its HTTP handler
// authenticates each callback with the shared secret and queues the raw
// body. The relay engine then parses the queued message into a typed event
// and archives signed contracts to the blob store. It publishes the
// normalized event to the bus. Messages that cannot be parsed, or that
// exhaust their attempts, go to the poison queue for inspection and
// replay.
//
// Quick start:
//
//	r, err := esignatures.New(
//	    esignatures.WithStore(memory.New()),
//	    esignatures.WithBus(busmem.New()),
//	    esignatures.WithSecret(os.Getenv("ESIG_WEBHOOK_SECRET")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r.Start(ctx)
//	defer r.Stop(context.Background())
//
//	http.ListenAndServe(":8080", r.Handler())
package esignatures
