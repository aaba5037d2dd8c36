package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"sort"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures/metadata"
	"github.com/squideyes/esignatures/signer"
	"github.com/squideyes/esignatures/value"
)

// Request is a validated contract request. It is safe for concurrent use;
// accessors return copies.
type Request struct {
	templateID     uuid.UUID
	title          string
	webhookURL     string
	expiresInHours int
	locale         Locale
	meta           *metadata.Metadata
	encodedMeta    string
	test           bool
	placeholders   map[string]string
	parties        []Party
	replyTo        value.Email
	cc             []value.Email
	requestEmail   *EmailSpec
	contractEmail  *EmailSpec
	branding       Branding
}

func newRequest(b *Builder, encodedMeta string) *Request {
	parties := make([]Party, len(b.parties))
	copy(parties, b.parties)
	sort.SliceStable(parties, func(i, j int) bool {
		return parties[i].Handling.Ordinal < parties[j].Handling.Ordinal
	})

	r := &Request{
		templateID:     b.templateID,
		title:          b.title,
		webhookURL:     b.webhookURL,
		expiresInHours: b.expiresInHours,
		locale:         b.locale,
		encodedMeta:    encodedMeta,
		test:           b.test,
		placeholders:   maps.Clone(b.placeholders),
		parties:        parties,
		replyTo:        b.replyTo,
		cc:             append([]value.Email(nil), b.cc...),
		branding:       b.branding,
	}
	if b.meta != nil {
		r.meta = b.meta.Clone()
	}
	if b.requestEmail != nil {
		spec := *b.requestEmail
		r.requestEmail = &spec
	}
	if b.contractEmail != nil {
		spec := *b.contractEmail
		r.contractEmail = &spec
	}
	return r
}

// TemplateID returns the provider template.
func (r *Request) TemplateID() uuid.UUID { return r.templateID }

// Title returns the contract title.
func (r *Request) Title() string { return r.title }

// WebhookURL returns the callback URL.
func (r *Request) WebhookURL() string { return r.webhookURL }

// ExpiresInHours returns the signing window.
func (r *Request) ExpiresInHours() int { return r.expiresInHours }

// Locale returns the signing page language.
func (r *Request) Locale() Locale { return r.locale }

// IsTest reports whether this is a provider test contract.
func (r *Request) IsTest() bool { return r.test }

// Metadata returns a copy of the metadata, or nil when none was set.
func (r *Request) Metadata() *metadata.Metadata {
	if r.meta == nil {
		return nil
	}
	return r.meta.Clone()
}

// EncodedMetadata returns the metadata string sent to the provider.
func (r *Request) EncodedMetadata() string { return r.encodedMeta }

// Placeholders returns a copy of the template fields.
func (r *Request) Placeholders() map[string]string { return maps.Clone(r.placeholders) }

// Signers returns the parties ordered by signing order, then by the order
// they were added.
func (r *Request) Signers() []Party {
	out := make([]Party, len(r.parties))
	for i, p := range r.parties {
		out[i] = p
		if p.Address != nil {
			a := *p.Address
			out[i].Address = &a
		}
	}
	return out
}

// Correlate attaches provider-assigned IDs, keyed by identity hash, to
// copies of the request's signers. A hash that matches no signer means
// the response does not belong to this request and yields ErrUnknownSigner.
func (r *Request) Correlate(ids map[string]uuid.UUID) ([]signer.Signer, error) {
	index := make(map[string]int, len(r.parties))
	out := make([]signer.Signer, len(r.parties))
	for i, p := range r.parties {
		out[i] = p.Signer
		index[p.Signer.Hash()] = i
	}

	for hash, id := range ids {
		i, ok := index[hash]
		if !ok {
			return nil, fmt.Errorf("%w: hash %s", ErrUnknownSigner, hash)
		}
		out[i].ID = id
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Wire payload
// ──────────────────────────────────────────────────

type payload struct {
	TemplateID     string               `json:"template_id"`
	Title          string               `json:"title"`
	ExpiresInHours int                  `json:"expires_in_hours"`
	Locale         string               `json:"locale"`
	Metadata       string               `json:"metadata"`
	Emails         *emailsPayload       `json:"emails,omitempty"`
	Branding       *Branding            `json:"custom_branding,omitempty"`
	Signers        []signerPayload      `json:"signers,omitempty"`
	Placeholders   []placeholderPayload `json:"placeholder_fields,omitempty"`
	Test           string               `json:"test"`
	WebhookURL     string               `json:"custom_webhook_url"`
}

type signerPayload struct {
	Name                  string   `json:"name"`
	Email                 string   `json:"email"`
	Mobile                string   `json:"mobile"`
	Company               string   `json:"company_name,omitempty"`
	SigningOrder          int      `json:"signing_order"`
	RequestDelivery       string   `json:"signature_request_delivery_method"`
	DocumentDelivery      string   `json:"signed_document_delivery_method"`
	IdentificationMethods []string `json:"required_identification_methods,omitempty"`
}

type placeholderPayload struct {
	APIKey string `json:"api_key"`
	Value  string `json:"value"`
}

type emailsPayload struct {
	RequestSubject  string   `json:"signature_request_subject,omitempty"`
	RequestText     string   `json:"signature_request_text,omitempty"`
	ContractSubject string   `json:"final_contract_subject,omitempty"`
	ContractText    string   `json:"final_contract_text,omitempty"`
	ReplyTo         string   `json:"reply_to,omitempty"`
	CC              []string `json:"cc_email_addresses,omitempty"`
}

// Payload renders the request as the provider's JSON body.
// A Request that did not come from Build cannot be rendered.
func (r *Request) Payload() ([]byte, error) {
	if r.templateID == uuid.Nil {
		return nil, &IncompleteError{Field: "template_id"}
	}

	p := payload{
		TemplateID:     r.templateID.String(),
		Title:          r.title,
		ExpiresInHours: r.expiresInHours,
		Locale:         r.locale.Code(),
		Metadata:       r.encodedMeta,
		Emails:         r.emailsPayload(),
		Test:           "no",
		WebhookURL:     r.webhookURL,
	}
	if r.test {
		p.Test = "yes"
	}
	if !r.branding.IsZero() {
		branding := r.branding
		p.Branding = &branding
	}

	for _, party := range r.parties {
		p.Signers = append(p.Signers, signerPayload{
			Name:                  party.Signer.FullName,
			Email:                 party.Signer.Email.String(),
			Mobile:                party.Signer.Mobile.String(),
			Company:               party.Signer.Company,
			SigningOrder:          party.Handling.Ordinal,
			RequestDelivery:       party.Handling.RequestBy.String(),
			DocumentDelivery:      party.Handling.DocumentBy.String(),
			IdentificationMethods: party.Handling.IdentificationMethods(),
		})
	}

	keys := make([]string, 0, len(r.placeholders))
	for k := range r.placeholders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Placeholders = append(p.Placeholders, placeholderPayload{APIKey: k, Value: r.placeholders[k]})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("contract: encode payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Request) emailsPayload() *emailsPayload {
	if r.requestEmail == nil && r.contractEmail == nil && r.replyTo == "" && len(r.cc) == 0 {
		return nil
	}

	e := &emailsPayload{ReplyTo: r.replyTo.String()}
	if r.requestEmail != nil {
		e.RequestSubject = r.requestEmail.Subject
		e.RequestText = r.requestEmail.Body
	}
	if r.contractEmail != nil {
		e.ContractSubject = r.contractEmail.Subject
		e.ContractText = r.contractEmail.Body
	}
	for _, cc := range r.cc {
		e.CC = append(e.CC, cc.String())
	}
	return e
}
