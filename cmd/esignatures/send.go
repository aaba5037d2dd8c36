package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/squideyes/esignatures/contract"
	"github.com/squideyes/esignatures/metadata"
	"github.com/squideyes/esignatures/sender"
	"github.com/squideyes/esignatures/signer"
	"github.com/squideyes/esignatures/value"
)

type sendOptions struct {
	file   string
	dryRun bool
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	sendOpts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit a contract request described by a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
			if err != nil {
				return err
			}

			req, err := readRequestFile(sendOpts.file)
			if err != nil {
				return err
			}

			if sendOpts.dryRun {
				body, err := req.Payload()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return err
			}

			if cfg.Provider.Token == "" {
				return errNoToken
			}
			client, err := sender.New(cfg.Provider.Token,
				sender.WithBaseURL(cfg.Provider.BaseURL),
				sender.WithTimeout(cfg.Provider.Timeout),
				sender.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			outcome := client.Send(cmd.Context(), req)
			if err := printOutcome(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if _, ok := outcome.(*sender.Accepted); !ok {
				return fmt.Errorf("submission %s", outcome.Kind())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sendOpts.file, "file", "f", "", "JSON contract description (- reads stdin)")
	cmd.Flags().BoolVar(&sendOpts.dryRun, "dry-run", false, "print the provider payload instead of sending it")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// requestFile is the JSON contract description accepted by send.
type requestFile struct {
	TemplateID     uuid.UUID           `json:"template_id"`
	Title          string              `json:"title"`
	WebhookURL     string              `json:"webhook_url"`
	ExpiresInHours int                 `json:"expires_in_hours"`
	Locale         string              `json:"locale"`
	Test           bool                `json:"test"`
	Metadata       string              `json:"metadata"`
	MetadataPairs  map[string]string   `json:"metadata_pairs"`
	Placeholders   map[string]string   `json:"placeholders"`
	SignDate       string              `json:"sign_date"`
	SignDateToday  bool                `json:"sign_date_today"`
	ReplyTo        string              `json:"reply_to"`
	CC             []string            `json:"cc"`
	RequestEmail   *contract.EmailSpec `json:"request_email"`
	ContractEmail  *contract.EmailSpec `json:"contract_email"`
	Branding       *contract.Branding  `json:"branding"`
	Signers        []signerFile        `json:"signers"`
}

type signerFile struct {
	signer.Signer
	Handling       *signer.Handling `json:"handling"`
	Address        *signer.Address  `json:"address"`
	NoPlaceholders bool             `json:"no_placeholders"`
}

func readRequestFile(path string) (*contract.Request, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	var rf requestFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("decode request file: %w", err)
	}
	return rf.build()
}

// build runs the description through contract.Builder so every field is
// validated exactly as a library caller's would be.
func (rf *requestFile) build() (*contract.Request, error) {
	b := contract.New().
		TemplateID(rf.TemplateID).
		Title(rf.Title).
		WebhookURL(rf.WebhookURL).
		Test(rf.Test)

	if rf.ExpiresInHours != 0 {
		b.ExpiresInHours(rf.ExpiresInHours)
	}
	if rf.Locale != "" {
		l, err := contract.ParseLocale(rf.Locale)
		if err != nil {
			return nil, err
		}
		b.Locale(l)
	}

	switch {
	case rf.Metadata != "" && len(rf.MetadataPairs) > 0:
		return nil, errors.New("metadata and metadata_pairs are mutually exclusive")
	case rf.Metadata != "":
		m, err := metadata.Decode(rf.Metadata)
		if err != nil {
			return nil, err
		}
		b.Metadata(m)
	case len(rf.MetadataPairs) > 0:
		m, err := metadata.FromPairs(rf.MetadataPairs)
		if err != nil {
			return nil, err
		}
		b.MetadataCodec(metadata.Pairs).Metadata(m)
	}

	for _, s := range rf.Signers {
		h := signer.DefaultHandling()
		if s.Handling != nil {
			h = *s.Handling
		}
		if s.NoPlaceholders {
			b.SignerNoPlaceholders(s.Signer, h, s.Address)
		} else {
			b.Signer(s.Signer, h, s.Address)
		}
	}

	for k, v := range rf.Placeholders {
		b.Placeholder(k, v)
	}

	switch {
	case rf.SignDate != "":
		t, err := time.Parse(time.DateOnly, rf.SignDate)
		if err != nil {
			return nil, value.Invalid("sign_date", "must be YYYY-MM-DD")
		}
		b.SignDate(t)
	case rf.SignDateToday:
		b.SignDateToday()
	}

	if rf.ReplyTo != "" {
		b.ReplyTo(rf.ReplyTo)
	}
	for _, cc := range rf.CC {
		b.CCPDF(cc)
	}
	if rf.RequestEmail != nil {
		b.RequestEmail(*rf.RequestEmail)
	}
	if rf.ContractEmail != nil {
		b.ContractEmail(*rf.ContractEmail)
	}
	if rf.Branding != nil {
		b.Branding(rf.Branding.CompanyName, rf.Branding.LogoURL)
	}

	return b.Build()
}

type outcomeView struct {
	Outcome    string          `json:"outcome"`
	ContractID string          `json:"contract_id,omitempty"`
	Signers    []signer.Signer `json:"signers,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func printOutcome(w io.Writer, o sender.Outcome) error {
	view := outcomeView{Outcome: o.Kind()}
	switch o := o.(type) {
	case *sender.Accepted:
		view.ContractID = o.ContractID.String()
		view.Signers = o.Signers
	case *sender.Rejected:
		view.StatusCode = o.StatusCode
		view.Reason = o.Reason
	case *sender.Failed:
		view.Error = o.Err.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
