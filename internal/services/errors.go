package services

import "errors"

var (
	// ErrInvalidPackage is returned when a top-up names a coin package that
	// does not exist or is no longer active.
	ErrInvalidPackage = errors.New("coin package not found or inactive")

	// ErrInvalidGift is returned when a gift send names a gift that does not
	// exist or is no longer active.
	ErrInvalidGift = errors.New("gift not found or inactive")

	// ErrInvalidRecipient is returned when a gift recipient does not exist or
	// is deactivated.
	ErrInvalidRecipient = errors.New("recipient not found or inactive")

	// ErrSelfGift is returned when a user tries to send a gift to themselves.
	ErrSelfGift = errors.New("cannot send a gift to yourself")

	// ErrSenderBanned is returned when the sender's wallet is banned from
	// sending gifts.
	ErrSenderBanned = errors.New("sender is banned from sending gifts")

	// ErrInsufficientCoins is returned when the sender's coin balance does
	// not cover the gift.
	ErrInsufficientCoins = errors.New("insufficient coin balance")

	// ErrKYCInsufficient is returned when an operation requires a verified
	// wallet and the user has not reached that KYC level.
	ErrKYCInsufficient = errors.New("identity verification required")

	// ErrWithdrawalsBlocked is returned when the wallet is blocked from
	// withdrawing pending a risk review.
	ErrWithdrawalsBlocked = errors.New("withdrawals are blocked pending review")

	// ErrBelowMinWithdrawal is returned when the requested amount is below
	// the configured minimum.
	ErrBelowMinWithdrawal = errors.New("amount is below the minimum withdrawal")

	// ErrInsufficientAvailable is returned when the requested amount exceeds
	// the wallet's available (non-held) earnings.
	ErrInsufficientAvailable = errors.New("insufficient available balance")

	// ErrDailyLimitExceeded is returned when the request would push the
	// user's rolling 24h withdrawal total over the configured cap.
	ErrDailyLimitExceeded = errors.New("daily withdrawal limit exceeded")

	// ErrMonthlyLimitExceeded is returned when the request would push the
	// user's rolling 30d withdrawal total over the configured cap.
	ErrMonthlyLimitExceeded = errors.New("monthly withdrawal limit exceeded")

	// ErrInvalidStatusTransition is returned when a review or settlement hits
	// a row that already left the expected status.
	ErrInvalidStatusTransition = errors.New("status does not allow this operation")

	// ErrInvalidPlan is returned when a subscription names an unknown plan.
	ErrInvalidPlan = errors.New("subscription plan not found")

	// ErrProviderUnavailable is returned when the payment provider cannot be
	// reached or answers 5xx.
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrProviderRejected is returned when the payment provider rejects the
	// request outright.
	ErrProviderRejected = errors.New("payment provider rejected the request")
)
