package entity

import (
	"encoding/json"
	"fmt"
)

// PaymentKind discriminates the two payment option variants.
type PaymentKind string

const (
	PaymentKindLink     PaymentKind = "link"
	PaymentKindTransfer PaymentKind = "transfer"
)

// PaymentLink is a hosted gateway checkout link.
type PaymentLink struct {
	Gateway string `json:"gateway"`
	URL     string `json:"url"`
}

// BankTransfer carries the identifiers a buyer needs to wire money.
type BankTransfer struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"holder_name"`
	TaxID         string `json:"tax_id"`
}

// PaymentOption is a tagged variant: exactly one of Link or Transfer is set,
// according to Kind. The constructors and UnmarshalJSON enforce the
// exclusivity structurally.
type PaymentOption struct {
	ID         string        `json:"id"`
	BusinessID string        `json:"business_id"`
	Kind       PaymentKind   `json:"kind"`
	Link       *PaymentLink  `json:"link,omitempty"`
	Transfer   *BankTransfer `json:"transfer,omitempty"`
}

// NewLinkOption builds a link payment option.
func NewLinkOption(id, businessID, gateway, url string) (PaymentOption, error) {
	if gateway == "" || url == "" {
		return PaymentOption{}, fmt.Errorf("link payment option requires gateway and url")
	}
	return PaymentOption{
		ID:         id,
		BusinessID: businessID,
		Kind:       PaymentKindLink,
		Link:       &PaymentLink{Gateway: gateway, URL: url},
	}, nil
}

// NewTransferOption builds a bank transfer payment option.
func NewTransferOption(id, businessID string, t BankTransfer) (PaymentOption, error) {
	if t.BankName == "" || t.AccountNumber == "" {
		return PaymentOption{}, fmt.Errorf("transfer payment option requires bank name and account number")
	}
	return PaymentOption{
		ID:         id,
		BusinessID: businessID,
		Kind:       PaymentKindTransfer,
		Transfer:   &t,
	}, nil
}

// Validate checks that the variant payload matches the kind tag.
func (p PaymentOption) Validate() error {
	switch p.Kind {
	case PaymentKindLink:
		if p.Link == nil || p.Transfer != nil {
			return fmt.Errorf("payment option %s: kind is link but payload does not match", p.ID)
		}
	case PaymentKindTransfer:
		if p.Transfer == nil || p.Link != nil {
			return fmt.Errorf("payment option %s: kind is transfer but payload does not match", p.ID)
		}
	default:
		return fmt.Errorf("payment option %s: unknown kind %q", p.ID, p.Kind)
	}
	return nil
}

// UnmarshalJSON decodes and rejects payloads whose fields contradict the
// kind tag.
func (p *PaymentOption) UnmarshalJSON(data []byte) error {
	type alias PaymentOption
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = PaymentOption(a)
	return p.Validate()
}
