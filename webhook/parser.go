package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/squideyes/esignatures/metadata"
)

// Parser decodes raw callback bodies into Events. A Parser is immutable
// after construction and safe for concurrent use.
type Parser struct {
	codec     metadata.Codec
	validator *EnvelopeValidator
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithCodec sets the codec used for echoed metadata. The default is
// metadata.Tagged.
func WithCodec(c metadata.Codec) ParserOption {
	return func(p *Parser) { p.codec = c }
}

// WithValidator sets the envelope validator. Passing nil disables schema
// validation.
func WithValidator(v *EnvelopeValidator) ParserOption {
	return func(p *Parser) { p.validator = v }
}

// NewParser creates a Parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		codec:     metadata.Tagged,
		validator: NewEnvelopeValidator(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.codec == nil {
		p.codec = metadata.Tagged
	}
	return p
}

// Status peeks at the callback's discriminator without decoding the rest.
func Status(raw []byte) (Kind, error) {
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return KindFromStatus(probe.Status)
}

// Parse decodes raw into its Event variant.
func (p *Parser) Parse(raw []byte) (Event, error) {
	kind, err := Status(raw)
	if err != nil {
		return nil, err
	}

	if p.validator != nil {
		doc, docErr := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if docErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, docErr)
		}
		if vErr := p.validator.Validate(kind, doc); vErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, kind.Status(), vErr)
		}
	}

	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	d := env.Data

	switch kind {
	case KindContractSent, KindSignerViewed, KindSignerSigned, KindSignerDeclined, KindMobileUpdate:
		if d.Contract == nil || d.Signer == nil {
			return nil, fmt.Errorf("%w: %s: missing contract or signer", ErrMalformedPayload, kind.Status())
		}
		h, err := p.header(d.Contract.ID, d.Contract.Metadata)
		if err != nil {
			return nil, err
		}
		s, err := d.Signer.signer()
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindContractSent:
			return &ContractSent{header: h, Signer: s}, nil
		case KindSignerViewed:
			return &SignerViewed{header: h, Signer: s}, nil
		case KindSignerSigned:
			return &SignerSigned{header: h, Signer: s}, nil
		case KindSignerDeclined:
			return &SignerDeclined{header: h, Signer: s}, nil
		default:
			return &MobileUpdate{header: h, Signer: s, NewMobile: d.Signer.MobileNew}, nil
		}

	case KindContractWithdrawn:
		var meta string
		var wire []wireSigner
		if d.Contract != nil {
			meta = d.Contract.Metadata
			wire = d.Contract.Signers
		}
		h, err := p.header(d.ContractID, meta)
		if err != nil {
			return nil, err
		}
		signers := make([]Signer, 0, len(wire))
		for _, ws := range wire {
			s, err := ws.signer()
			if err != nil {
				return nil, err
			}
			signers = append(signers, s)
		}
		return &ContractWithdrawn{header: h, Signers: signers}, nil

	case KindWebHookError:
		h, err := p.header(d.ContractID, d.Metadata)
		if err != nil {
			return nil, err
		}
		return &WebHookError{header: h, Code: d.ErrorCode, Message: d.ErrorMessage}, nil

	case KindContractSigned:
		if d.Contract == nil {
			return nil, fmt.Errorf("%w: %s: missing contract", ErrMalformedPayload, kind.Status())
		}
		h, err := p.header(d.Contract.ID, d.Contract.Metadata)
		if err != nil {
			return nil, err
		}
		pdfURL, err := url.QueryUnescape(d.Contract.PDFURL)
		if err != nil {
			return nil, fmt.Errorf("%w: contract_pdf_url: %v", ErrMalformedPayload, err)
		}
		signers := make([]SignedSigner, 0, len(d.Contract.Signers))
		for _, ws := range d.Contract.Signers {
			ss, err := ws.signedSigner()
			if err != nil {
				return nil, err
			}
			signers = append(signers, ss)
		}
		return &ContractSigned{header: h, PDFURL: pdfURL, Signers: signers}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnrecognizedStatus, kind)
}

func (p *Parser) header(contractID, rawMeta string) (header, error) {
	id, err := parseID("contract id", contractID)
	if err != nil {
		return header{}, err
	}

	meta := metadata.New()
	if strings.TrimSpace(rawMeta) != "" {
		meta, err = p.codec.Decode(rawMeta)
		if err != nil {
			return header{}, fmt.Errorf("webhook: metadata: %w", err)
		}
	}

	return header{contractID: id, meta: meta, rawMeta: rawMeta}, nil
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q: %v", ErrMalformedPayload, field, s, err)
	}
	return id, nil
}

// timestampLayouts are tried in order. Values without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrMalformedPayload, s)
}

type wireEnvelope struct {
	Status string   `json:"status"`
	Data   wireData `json:"data"`
}

type wireData struct {
	Contract     *wireContract `json:"contract"`
	Signer       *wireSigner   `json:"signer"`
	ContractID   string        `json:"contract_id"`
	ErrorCode    string        `json:"error_code"`
	ErrorMessage string        `json:"error_message"`
	Metadata     string        `json:"metadata"`
}

type wireContract struct {
	ID       string       `json:"id"`
	Metadata string       `json:"metadata"`
	PDFURL   string       `json:"contract_pdf_url"`
	Signers  []wireSigner `json:"signers"`
}

type wireSigner struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Mobile      string         `json:"mobile"`
	MobileNew   string         `json:"mobile_new"`
	Events      []wireEvent    `json:"events"`
	FieldValues map[string]any `json:"signer_field_values"`
}

type wireEvent struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

func (w wireSigner) signer() (Signer, error) {
	id, err := parseID("signer id", w.ID)
	if err != nil {
		return Signer{}, err
	}
	return Signer{ID: id, Name: w.Name, Email: w.Email, Mobile: w.Mobile}, nil
}

func (w wireSigner) signedSigner() (SignedSigner, error) {
	s, err := w.signer()
	if err != nil {
		return SignedSigner{}, err
	}

	events := make([]SignerEvent, 0, len(w.Events))
	for _, we := range w.Events {
		k, err := ParseSignerEventKind(we.Event)
		if err != nil {
			return SignedSigner{}, err
		}
		ts, err := parseTimestamp(we.Timestamp)
		if err != nil {
			return SignedSigner{}, err
		}
		events = append(events, SignerEvent{Kind: k, Timestamp: ts})
	}

	var fields map[string]string
	if len(w.FieldValues) > 0 {
		fields = make(map[string]string, len(w.FieldValues))
		for k, v := range w.FieldValues {
			switch tv := v.(type) {
			case nil:
				fields[k] = ""
			case string:
				fields[k] = tv
			default:
				fields[k] = fmt.Sprint(tv)
			}
		}
	}

	return SignedSigner{Signer: s, Events: events, FieldValues: fields}, nil
}
