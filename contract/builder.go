package contract

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures/metadata"
	"github.com/squideyes/esignatures/signer"
	"github.com/squideyes/esignatures/value"
)

// Expiry bounds in hours.
const (
	MinExpiryHours     = 1
	MaxExpiryHours     = 168
	DefaultExpiryHours = 6
)

// Sign-date placeholder keys.
const (
	KeySignDate  = "sign-date"
	KeySignDay   = "sign-day"
	KeySignMonth = "sign-month"
	KeySignYear  = "sign-year"
)

// Party is a signer together with its handling and optional address.
type Party struct {
	Signer   signer.Signer
	Handling signer.Handling
	Address  *signer.Address
}

// Builder accumulates a contract request. Every mutator validates its
// argument, records the first failure and returns the same Builder; after
// a failure the remaining mutators are no-ops and Build returns the error.
type Builder struct {
	err error

	templateID     uuid.UUID
	title          string
	webhookURL     string
	expiresInHours int
	locale         Locale
	meta           *metadata.Metadata
	codec          metadata.Codec
	test           bool

	placeholders map[string]string
	parties      []Party
	hashes       map[string]struct{}

	replyTo       value.Email
	cc            []value.Email
	requestEmail  *EmailSpec
	contractEmail *EmailSpec
	branding      Branding
}

// New returns a Builder with the default expiry, English locale and the
// tagged metadata codec.
func New() *Builder {
	return &Builder{
		expiresInHours: DefaultExpiryHours,
		locale:         LocaleEN,
		codec:          metadata.Tagged,
		placeholders:   make(map[string]string),
		hashes:         make(map[string]struct{}),
	}
}

// Err returns the first error recorded by a mutator.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// TemplateID sets the provider template. uuid.Nil is rejected.
func (b *Builder) TemplateID(id uuid.UUID) *Builder {
	if b.err != nil {
		return b
	}
	if id == uuid.Nil {
		return b.fail(value.Invalid("template_id", "must not be nil"))
	}
	b.templateID = id
	return b
}

// Title sets the contract title.
func (b *Builder) Title(title string) *Builder {
	if b.err != nil {
		return b
	}
	if value.IsBlank(title) {
		return b.fail(value.Invalid("title", "must not be blank"))
	}
	b.title = title
	return b
}

// WebhookURL sets the absolute URL the provider calls back.
func (b *Builder) WebhookURL(rawURL string) *Builder {
	if b.err != nil {
		return b
	}
	if !isAbsoluteURL(rawURL) {
		return b.fail(value.Invalid("custom_webhook_url", "must be an absolute URL"))
	}
	b.webhookURL = rawURL
	return b
}

// ExpiresInHours sets how long the contract stays open for signing.
func (b *Builder) ExpiresInHours(hours int) *Builder {
	if b.err != nil {
		return b
	}
	if hours < MinExpiryHours || hours > MaxExpiryHours {
		return b.fail(value.Invalid("expires_in_hours",
			fmt.Sprintf("must be between %d and %d", MinExpiryHours, MaxExpiryHours)))
	}
	b.expiresInHours = hours
	return b
}

// Locale sets the signing page language.
func (b *Builder) Locale(l Locale) *Builder {
	if b.err != nil {
		return b
	}
	if !l.Valid() {
		return b.fail(value.Invalid("locale", "must be a supported locale"))
	}
	b.locale = l
	return b
}

// Metadata replaces the metadata carried through the provider.
func (b *Builder) Metadata(m *metadata.Metadata) *Builder {
	if b.err != nil {
		return b
	}
	if m == nil {
		return b.fail(value.Invalid("metadata", "must not be nil"))
	}
	b.meta = m.Clone()
	return b
}

// MetadataCodec selects the wire form used for metadata.
func (b *Builder) MetadataCodec(c metadata.Codec) *Builder {
	if b.err != nil {
		return b
	}
	if c == nil {
		return b.fail(value.Invalid("metadata_codec", "must not be nil"))
	}
	b.codec = c
	return b
}

// Test marks the contract as a provider test contract.
func (b *Builder) Test(test bool) *Builder {
	if b.err == nil {
		b.test = test
	}
	return b
}

// Placeholder sets a template field. The value is formatted with fmt;
// setting an existing key overwrites it.
func (b *Builder) Placeholder(key string, v any) *Builder {
	if b.err != nil {
		return b
	}
	if !value.IsDashedKey(key) {
		return b.fail(value.Invalid("placeholder", fmt.Sprintf("%q is not a valid placeholder key", key)))
	}
	if v == nil {
		return b.fail(value.Invalid("placeholder", fmt.Sprintf("%q has a nil value", key)))
	}
	b.placeholders[key] = fmt.Sprint(v)
	return b
}

// SignDate sets the sign-date group of placeholders from t.
func (b *Builder) SignDate(t time.Time) *Builder {
	return b.
		Placeholder(KeySignDate, t.Format("01/02/2006")).
		Placeholder(KeySignDay, ordinalDay(t.Day())).
		Placeholder(KeySignMonth, t.Month().String()).
		Placeholder(KeySignYear, strconv.Itoa(t.Year()))
}

// SignDateToday sets the sign-date group from the local date.
func (b *Builder) SignDateToday() *Builder {
	return b.SignDate(time.Now())
}

func ordinalDay(day int) string {
	switch day {
	case 1, 21, 31:
		return strconv.Itoa(day) + "st"
	case 2, 22:
		return strconv.Itoa(day) + "nd"
	case 3, 23:
		return strconv.Itoa(day) + "rd"
	default:
		return strconv.Itoa(day) + "th"
	}
}

// Signer adds a signer and derives placeholders prefixed by the signer's
// lower-cased nickname. addr may be nil.
func (b *Builder) Signer(s signer.Signer, h signer.Handling, addr *signer.Address) *Builder {
	return b.addSigner(s, h, addr, true)
}

// SignerNoPlaceholders adds a signer without deriving placeholders.
func (b *Builder) SignerNoPlaceholders(s signer.Signer, h signer.Handling, addr *signer.Address) *Builder {
	return b.addSigner(s, h, addr, false)
}

func (b *Builder) addSigner(s signer.Signer, h signer.Handling, addr *signer.Address, derive bool) *Builder {
	if b.err != nil {
		return b
	}
	if err := s.Validate(); err != nil {
		return b.fail(err)
	}
	mobile, err := value.ParsePhone(string(s.Mobile))
	if err != nil {
		return b.fail(err)
	}
	s.Mobile = mobile
	if err := h.Validate(); err != nil {
		return b.fail(err)
	}
	if addr != nil {
		if err := addr.Validate(); err != nil {
			return b.fail(err)
		}
		a := *addr
		addr = &a
	}

	hash := s.Hash()
	if _, dup := b.hashes[hash]; dup {
		return b.fail(fmt.Errorf("%w: %s <%s>", ErrDuplicateSigner, s.FullName, s.Email))
	}

	s.ID = uuid.Nil
	b.hashes[hash] = struct{}{}
	b.parties = append(b.parties, Party{Signer: s, Handling: h, Address: addr})

	if derive {
		b.deriveSignerPlaceholders(s, addr)
	}
	return b
}

func (b *Builder) deriveSignerPlaceholders(s signer.Signer, addr *signer.Address) {
	prefix := strings.ToLower(s.Nickname) + "-"

	b.Placeholder(prefix+"name", s.FullName).
		Placeholder(prefix+"nickname", s.Nickname).
		Placeholder(prefix+"email", s.Email.String()).
		Placeholder(prefix+"mobile", s.Mobile.String())

	if s.Company != "" {
		b.Placeholder(prefix+"company", s.Company)
	}

	if addr == nil {
		return
	}

	b.Placeholder(prefix+"address1", addr.Address1).
		Placeholder(prefix+"address2", addr.Address2).
		Placeholder(prefix+"locality", addr.Locality).
		Placeholder(prefix+"region", addr.Region).
		Placeholder(prefix+"postal-code", addr.PostalCode).
		Placeholder(prefix+"country", addr.Country).
		Placeholder(prefix+"one-line-address", addr.OneLine())
}

// ReplyTo sets the reply-to address of provider notifications.
func (b *Builder) ReplyTo(email string) *Builder {
	if b.err != nil {
		return b
	}
	e, err := value.ParseEmail(email)
	if err != nil {
		return b.fail(value.Invalid("reply_to", "must be a valid email address"))
	}
	b.replyTo = e
	return b
}

// CCPDF adds an address that receives the signed PDF. Repeats are ignored.
func (b *Builder) CCPDF(email string) *Builder {
	if b.err != nil {
		return b
	}
	e, err := value.ParseEmail(email)
	if err != nil {
		return b.fail(value.Invalid("cc_email_addresses", "must be a valid email address"))
	}
	for _, existing := range b.cc {
		if existing == e {
			return b
		}
	}
	b.cc = append(b.cc, e)
	return b
}

// RequestEmail overrides the signature request notification.
func (b *Builder) RequestEmail(spec EmailSpec) *Builder {
	if b.err != nil {
		return b
	}
	if err := spec.Validate(); err != nil {
		return b.fail(err)
	}
	b.requestEmail = &spec
	return b
}

// ContractEmail overrides the final contract notification.
func (b *Builder) ContractEmail(spec EmailSpec) *Builder {
	if b.err != nil {
		return b
	}
	if err := spec.Validate(); err != nil {
		return b.fail(err)
	}
	b.contractEmail = &spec
	return b
}

// Branding sets the company name and logo shown to signers. Either may be
// empty.
func (b *Builder) Branding(companyName, logoURL string) *Builder {
	if b.err != nil {
		return b
	}
	if !value.IsEmptyOrTrimmed(companyName) {
		return b.fail(value.Invalid("company_name", "must be empty or trimmed"))
	}
	if logoURL != "" && !isAbsoluteURL(logoURL) {
		return b.fail(value.Invalid("logo_url", "must be an absolute URL"))
	}
	b.branding = Branding{CompanyName: companyName, LogoURL: logoURL}
	return b
}

// Build checks the required fields and returns the finished Request.
func (b *Builder) Build() (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}

	switch {
	case b.templateID == uuid.Nil:
		return nil, &IncompleteError{Field: "template_id"}
	case b.title == "":
		return nil, &IncompleteError{Field: "title"}
	case b.webhookURL == "":
		return nil, &IncompleteError{Field: "custom_webhook_url"}
	case !b.hasSignDate():
		return nil, &IncompleteError{Field: KeySignDate}
	case len(b.parties) == 0:
		return nil, &IncompleteError{Field: "signers"}
	}

	encoded, err := b.codec.Encode(b.meta)
	if err != nil {
		return nil, err
	}

	return newRequest(b, encoded), nil
}

func (b *Builder) hasSignDate() bool {
	if _, ok := b.placeholders[KeySignDate]; ok {
		return true
	}
	for _, k := range []string{KeySignDay, KeySignMonth, KeySignYear} {
		if _, ok := b.placeholders[k]; !ok {
			return false
		}
	}
	return true
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
