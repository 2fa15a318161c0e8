package chapa

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// CustomizationTitleMaxLength is the provider's cap on checkout titles.
	CustomizationTitleMaxLength = 16
	// CustomizationDescriptionMaxLength is the provider's cap on checkout descriptions.
	CustomizationDescriptionMaxLength = 50
	// TxRefMaxLength is the provider's cap on transaction references.
	TxRefMaxLength = 50
)

// PaymentRequest is the body of the initialize call. Amount is a 2dp string
// because the provider rejects numeric JSON amounts.
type PaymentRequest struct {
	Amount        string                 `json:"amount"`
	Currency      string                 `json:"currency"`
	Email         string                 `json:"email"`
	FirstName     string                 `json:"first_name"`
	LastName      string                 `json:"last_name"`
	PhoneNumber   string                 `json:"phone_number,omitempty"`
	TxRef         string                 `json:"tx_ref"`
	CallbackURL   string                 `json:"callback_url,omitempty"`
	ReturnURL     string                 `json:"return_url,omitempty"`
	Customization *Customization         `json:"customization,omitempty"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
}

// Customization controls the hosted checkout branding.
type Customization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r PaymentRequest) validate() error {
	if r.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if r.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if r.TxRef == "" {
		return fmt.Errorf("tx_ref is required")
	}
	if len(r.TxRef) > TxRefMaxLength {
		return fmt.Errorf("tx_ref must be at most %d characters", TxRefMaxLength)
	}
	if r.Customization != nil {
		if len([]rune(r.Customization.Title)) > CustomizationTitleMaxLength {
			return fmt.Errorf("customization title must be at most %d characters", CustomizationTitleMaxLength)
		}
		if len([]rune(r.Customization.Description)) > CustomizationDescriptionMaxLength {
			return fmt.Errorf("customization description must be at most %d characters", CustomizationDescriptionMaxLength)
		}
	}
	return nil
}

// Checkout is the result of a successful initialize call.
type Checkout struct {
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

// Verification is the provider's view of a transaction. The webhook trusts
// it over the webhook payload.
type Verification struct {
	Status    string           `json:"status"`
	Reference string           `json:"reference"`
	TxRef     string           `json:"tx_ref"`
	Amount    *decimal.Decimal `json:"amount"`
	Charge    *decimal.Decimal `json:"charge"`
	Currency  string           `json:"currency"`
}

// Verified reports whether the provider settled the transaction.
func (v *Verification) Verified() bool {
	return v != nil && v.Status == "success"
}

// Bank is one entry of the provider's payout bank directory.
type Bank struct {
	ID         json.Number `json:"id"`
	Slug       string      `json:"slug"`
	Swift      string      `json:"swift"`
	Name       string      `json:"name"`
	AcctLength int         `json:"acct_length"`
	Currency   string      `json:"currency"`
}
