package events

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Event type tags carried in the message envelope. Clients switch on these.
const (
	WalletUpdatedType         = "wallet.updated"
	GiftSentType              = "gift.sent"
	GiftReceivedType          = "gift.received"
	WithdrawalNewType         = "withdrawal.new"
	WithdrawalRejectedType    = "withdrawal.rejected"
	WithdrawalPaidType        = "withdrawal.paid"
	SubscriptionActivatedType = "subscription.activated"
	RiskFlagType              = "risk.flag"
)

// AdminsGroup is the channel group every admin client subscribes to.
const AdminsGroup = "admins"

// UserGroup is the channel group a single user's clients subscribe to.
func UserGroup(userID string) string {
	return fmt.Sprintf("user_%s", userID)
}

// WalletUpdatedData is the wallet.updated payload. Decimal amounts are
// serialized as 2-dp strings.
type WalletUpdatedData struct {
	CoinBalance int64           `json:"coin_balance"`
	BalanceETB  decimal.Decimal `json:"balance_etb"`
	HoldETB     decimal.Decimal `json:"hold_etb"`
}

// GiftEventData is shared by gift.sent and gift.received.
type GiftEventData struct {
	TransactionID string          `json:"tx_id"`
	Gift          string          `json:"gift"`
	Quantity      int             `json:"quantity"`
	Coins         int64           `json:"coins"`
	ValueETB      decimal.Decimal `json:"value_etb"`
	CreatorPayout decimal.Decimal `json:"creator_payout"`
	SenderID      string          `json:"sender_id,omitempty"`
	RecipientID   string          `json:"recipient_id,omitempty"`
}

// WithdrawalEventData serves withdrawal.new (to admins), withdrawal.rejected
// and withdrawal.paid (to the requesting user).
type WithdrawalEventData struct {
	WithdrawalID string          `json:"withdrawal_id"`
	UserID       string          `json:"user_id,omitempty"`
	AmountETB    decimal.Decimal `json:"amount_etb"`
	Method       string          `json:"method,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	ProviderRef  string          `json:"provider_ref,omitempty"`
}

// SubscriptionActivatedData is the subscription.activated payload.
type SubscriptionActivatedData struct {
	Plan      string `json:"plan"`
	ExpiresAt string `json:"expires_at"`
}

// RiskFlagData is the risk.flag payload sent to the admins group when a
// wallet gets blocked for review.
type RiskFlagData struct {
	UserID  string   `json:"user_id"`
	Reasons []string `json:"reasons"`
}
