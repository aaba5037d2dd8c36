// Package contract builds the request that asks the signing provider to
// create a contract from a template.
//
// A Builder accumulates and validates settings one call at a time and is
// owned by a single goroutine. Build checks the remaining preconditions
// and returns an immutable Request whose Payload is the provider's wire
// format.
//
//	req, err := contract.New().
//		TemplateID(templateID).
//		Title("Mutual NDA").
//		WebhookURL("https://hooks.example.com/WebHook").
//		SignDate(time.Now()).
//		Signer(partner, signer.DefaultHandling(), &address).
//		Build()
package contract
