package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/chapa"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/utils"
)

// Plan is one sellable subscription. The catalog is compiled in; only prices
// can be overridden through configuration.
type Plan struct {
	Code         data.SubscriptionPlan `json:"code"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	PriceETB     decimal.Decimal       `json:"price_etb"`
	Icon         string                `json:"icon"`
	DurationDays int                   `json:"duration_days"`
}

// DefaultPlans is the built-in plan catalog.
func DefaultPlans() []Plan {
	return []Plan{
		{
			Code:         data.BoostSubscriptionPlan,
			Name:         "Boost Plan",
			Description:  "Be seen by more people and get more matches",
			PriceETB:     decimal.NewFromInt(199),
			Icon:         "🔥",
			DurationDays: 30,
		},
		{
			Code:         data.LikesRevealSubscriptionPlan,
			Name:         "Likes Reveal",
			Description:  "See everyone who already liked you",
			PriceETB:     decimal.NewFromInt(149),
			Icon:         "❤️",
			DurationDays: 30,
		},
		{
			Code:         data.AdFreeSubscriptionPlan,
			Name:         "Ad Free",
			Description:  "Use the app without any ads",
			PriceETB:     decimal.NewFromInt(99),
			Icon:         "🚫📢",
			DurationDays: 30,
		},
	}
}

// ApplyPlanPriceOverrides overrides catalog prices from a configuration
// string like "BOOST=199,LIKES_REVEAL=149". Unknown plan codes and
// non-positive prices are configuration errors.
func ApplyPlanPriceOverrides(plans []Plan, overrides string) ([]Plan, error) {
	overrides = strings.TrimSpace(overrides)
	if overrides == "" {
		return plans, nil
	}

	byCode := make(map[data.SubscriptionPlan]int, len(plans))
	for i, plan := range plans {
		byCode[plan.Code] = i
	}

	for _, pair := range strings.Split(overrides, ",") {
		code, rawPrice, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return nil, fmt.Errorf("invalid plan price override %q, expected CODE=PRICE", pair)
		}

		planCode, err := data.ToSubscriptionPlan(strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("invalid plan price override %q: %w", pair, err)
		}
		i, ok := byCode[planCode]
		if !ok {
			return nil, fmt.Errorf("plan price override for %s does not match any catalog plan", planCode)
		}

		price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
		if err != nil {
			return nil, fmt.Errorf("invalid price in plan override %q: %w", pair, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price in plan override %q must be positive", pair)
		}

		plans[i].PriceETB = price
	}

	return plans, nil
}

type SubscriptionServiceInterface interface {
	Plans() []Plan
	Subscribe(ctx context.Context, userID string, planCode data.SubscriptionPlan, returnURL string) (*SubscribeResponse, error)
	Activate(ctx context.Context, userID, txRef string) (*data.SubscriptionPurchase, error)
}

// SubscribeResponse is returned to the client so it can redirect to the
// hosted checkout page.
type SubscribeResponse struct {
	CheckoutURL string                     `json:"checkout_url"`
	TxRef       string                     `json:"tx_ref"`
	Purchase    *data.SubscriptionPurchase `json:"purchase"`
}

// SubscriptionSettleResult reports a settlement attempt.
type SubscriptionSettleResult struct {
	Purchase         *data.SubscriptionPurchase
	AlreadyProcessed bool
}

// SubscriptionService sells the perk plans: it initiates checkouts, settles
// them (from the webhook or the explicit activate call) and grants the perk
// on the user row.
type SubscriptionService struct {
	models           *data.Models
	dbConnectionPool db.DBConnectionPool
	chapaClient      chapa.ClientInterface
	eventPublisher   events.Publisher
	baseURL          string
	frontendURL      string
	plans            []Plan
	plansByCode      map[data.SubscriptionPlan]Plan
}

var (
	_ SubscriptionServiceInterface = (*SubscriptionService)(nil)
	_ SubscriptionSettlerInterface = (*SubscriptionService)(nil)
)

func NewSubscriptionService(models *data.Models, dbConnectionPool db.DBConnectionPool, chapaClient chapa.ClientInterface, eventPublisher events.Publisher, baseURL, frontendURL string, plans []Plan) (*SubscriptionService, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan catalog cannot be empty")
	}

	plansByCode := make(map[data.SubscriptionPlan]Plan, len(plans))
	for _, plan := range plans {
		if err := plan.Code.Validate(); err != nil {
			return nil, fmt.Errorf("invalid plan catalog: %w", err)
		}
		if !plan.PriceETB.IsPositive() || plan.DurationDays <= 0 {
			return nil, fmt.Errorf("plan %s needs a positive price and duration", plan.Code)
		}
		if _, dup := plansByCode[plan.Code]; dup {
			return nil, fmt.Errorf("duplicate plan %s in catalog", plan.Code)
		}
		plansByCode[plan.Code] = plan
	}

	return &SubscriptionService{
		models:           models,
		dbConnectionPool: dbConnectionPool,
		chapaClient:      chapaClient,
		eventPublisher:   eventPublisher,
		baseURL:          baseURL,
		frontendURL:      frontendURL,
		plans:            plans,
		plansByCode:      plansByCode,
	}, nil
}

// Plans returns the sellable catalog in display order.
func (s *SubscriptionService) Plans() []Plan {
	return s.plans
}

// Subscribe opens a hosted checkout for the given plan and records an
// INITIATED purchase plus its payment leg. The perk is only granted once the
// purchase settles.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID string, planCode data.SubscriptionPlan, returnURL string) (*SubscribeResponse, error) {
	plan, ok := s.plansByCode[planCode]
	if !ok {
		return nil, ErrInvalidPlan
	}

	user, err := s.models.Users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", userID, err)
	}

	// Checkout sends the customer back to the app when the caller does not
	// ask for a specific page.
	if returnURL == "" {
		returnURL = s.frontendURL
	}

	txRef := newSubscriptionTxRef(plan.Code)

	type initiated struct {
		purchase *data.SubscriptionPurchase
		payment  *data.Payment
	}
	created, err := db.RunInTransactionWithResult(ctx, s.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*initiated, error) {
		purchase, insertErr := s.models.Subscriptions.Insert(ctx, dbTx, data.SubscriptionPurchaseInsert{
			UserID:       userID,
			Plan:         plan.Code,
			AmountETB:    plan.PriceETB,
			DurationDays: plan.DurationDays,
			TxRef:        txRef,
		})
		if insertErr != nil {
			return nil, fmt.Errorf("inserting subscription purchase: %w", insertErr)
		}

		payment, paymentErr := s.models.Payments.Insert(ctx, dbTx, data.PaymentInsert{
			UserID:        userID,
			Provider:      data.ChapaPaymentProvider,
			TxRef:         txRef,
			PriceTotalETB: plan.PriceETB,
			VATETB:        decimal.Zero,
		})
		if paymentErr != nil {
			return nil, fmt.Errorf("inserting subscription payment: %w", paymentErr)
		}

		return &initiated{purchase: purchase, payment: payment}, nil
	})
	if err != nil {
		return nil, err
	}

	email, firstName, lastName := providerCustomer(user)
	checkout, err := s.chapaClient.InitializePayment(ctx, chapa.PaymentRequest{
		Amount:      plan.PriceETB.StringFixed(2),
		Currency:    "ETB",
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: utils.SanitizeEthiopianPhone(user.PhoneNumber),
		TxRef:       txRef,
		CallbackURL: s.baseURL + "/webhooks/chapa/",
		ReturnURL:   returnURL,
		Customization: &chapa.Customization{
			Title:       "Fikir Plus",
			Description: fmt.Sprintf("%s subscription", plan.Name),
		},
		Meta: map[string]interface{}{
			"user_id":     userID,
			"username":    user.Username,
			"plan_code":   string(plan.Code),
			"plan_name":   plan.Name,
			"purchase_id": created.purchase.ID,
			"type":        "subscription",
		},
	})
	if err != nil {
		if chapa.IsUnavailable(err) {
			return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, err)
	}

	if err = s.models.Subscriptions.AttachCheckout(ctx, s.dbConnectionPool, created.purchase.ID, checkout.CheckoutURL, nil); err != nil {
		return nil, fmt.Errorf("attaching checkout to purchase %s: %w", created.purchase.ID, err)
	}
	if err = s.models.Payments.AttachCheckout(ctx, s.dbConnectionPool, created.payment.ID, checkout.CheckoutURL); err != nil {
		return nil, fmt.Errorf("attaching checkout to payment %s: %w", created.payment.ID, err)
	}
	created.purchase.CheckoutURL = &checkout.CheckoutURL

	return &SubscribeResponse{
		CheckoutURL: checkout.CheckoutURL,
		TxRef:       txRef,
		Purchase:    created.purchase,
	}, nil
}

// Settle completes the purchase with the given tx_ref: it marks the payment
// leg successful, stamps the activation window and grants the perk. Calling
// it again for a COMPLETED purchase reports AlreadyProcessed.
func (s *SubscriptionService) Settle(ctx context.Context, txRef string, providerRef *string, gwFeeETB decimal.Decimal) (*SubscriptionSettleResult, error) {
	return s.settle(ctx, txRef, providerRef, gwFeeETB, nil)
}

// Activate settles the caller's own purchase without waiting for the
// webhook. Purchases belonging to other users are reported as not found.
func (s *SubscriptionService) Activate(ctx context.Context, userID, txRef string) (*data.SubscriptionPurchase, error) {
	result, err := s.settle(ctx, txRef, nil, decimal.Zero, &userID)
	if err != nil {
		return nil, err
	}
	return result.Purchase, nil
}

func (s *SubscriptionService) settle(ctx context.Context, txRef string, providerRef *string, gwFeeETB decimal.Decimal, requiredUserID *string) (*SubscriptionSettleResult, error) {
	result, err := db.RunInTransactionWithResult(ctx, s.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*SubscriptionSettleResult, error) {
		return s.settleTx(ctx, dbTx, txRef, providerRef, gwFeeETB, requiredUserID)
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyProcessed {
		expiresAt := ""
		if result.Purchase.ExpiresAt != nil {
			expiresAt = result.Purchase.ExpiresAt.Format(time.RFC3339)
		}
		events.PublishBestEffort(ctx, s.eventPublisher, events.Message{
			Group: events.UserGroup(result.Purchase.UserID),
			Type:  events.SubscriptionActivatedType,
			Data: events.SubscriptionActivatedData{
				Plan:      string(result.Purchase.Plan),
				ExpiresAt: expiresAt,
			},
		})
	}

	return result, nil
}

func (s *SubscriptionService) settleTx(ctx context.Context, dbTx db.DBTransaction, txRef string, providerRef *string, gwFeeETB decimal.Decimal, requiredUserID *string) (*SubscriptionSettleResult, error) {
	purchase, err := s.models.Subscriptions.GetByTxRefForUpdate(ctx, dbTx, txRef)
	if err != nil {
		return nil, fmt.Errorf("getting purchase by tx_ref %s: %w", txRef, err)
	}
	if requiredUserID != nil && purchase.UserID != *requiredUserID {
		return nil, fmt.Errorf("getting purchase by tx_ref %s: %w", txRef, data.ErrRecordNotFound)
	}

	if purchase.Status == data.CompletedSubscriptionStatus {
		return &SubscriptionSettleResult{Purchase: purchase, AlreadyProcessed: true}, nil
	}
	if transitionErr := purchase.Status.TransitionTo(data.CompletedSubscriptionStatus); transitionErr != nil {
		return nil, fmt.Errorf("%w: purchase %s: %s", ErrInvalidStatusTransition, purchase.ID, transitionErr)
	}

	payment, err := s.models.Payments.GetByTxRefForUpdate(ctx, dbTx, txRef)
	if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
		return nil, fmt.Errorf("getting payment leg for tx_ref %s: %w", txRef, err)
	}
	if payment != nil && payment.Status == data.InitiatedPaymentStatus {
		if _, markErr := s.models.Payments.MarkSuccess(ctx, dbTx, payment.ID, providerRef, gwFeeETB, "Subscription settled"); markErr != nil {
			return nil, fmt.Errorf("marking subscription payment %s successful: %w", payment.ID, markErr)
		}
	}

	activatedAt := time.Now()
	expiresAt := activatedAt.Add(time.Duration(purchase.DurationDays) * 24 * time.Hour)
	completed, err := s.models.Subscriptions.Complete(ctx, dbTx, purchase.ID, activatedAt, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("completing purchase %s: %w", purchase.ID, err)
	}

	if err = s.models.Users.GrantPerk(ctx, dbTx, purchase.UserID, purchase.Plan, expiresAt); err != nil {
		return nil, fmt.Errorf("granting %s perk to user %s: %w", purchase.Plan, purchase.UserID, err)
	}

	_, err = s.models.AuditLogs.Insert(ctx, dbTx, &purchase.UserID, data.SubscriptionActivatedAuditEvent, data.AuditMetadata{
		"purchase_id": completed.ID,
		"plan":        string(completed.Plan),
		"tx_ref":      completed.TxRef,
		"expires_at":  expiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("auditing subscription activation: %w", err)
	}

	return &SubscriptionSettleResult{Purchase: completed}, nil
}

// newSubscriptionTxRef builds references like "sub-BOOST-{12 hex}".
func newSubscriptionTxRef(plan data.SubscriptionPlan) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("sub-%s-%s", plan, suffix)
}
