package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/chapa"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/support/log"
	"github.com/fikir-app/fikir-backend/internal/utils"
)

type TopUpServiceInterface interface {
	CreateTopUp(ctx context.Context, userID, packageID, returnURL string) (*TopUpResponse, error)
}

// TopUpService initiates coin top-ups: it records an INITIATED payment and
// opens a hosted checkout with the provider. Settlement happens later through
// the webhook.
type TopUpService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	ChapaClient      chapa.ClientInterface
	BaseURL          string
	FrontendURL      string
}

// TopUpResponse is returned to the client so it can redirect to the hosted
// checkout page.
type TopUpResponse struct {
	CheckoutURL string        `json:"checkout_url"`
	TxRef       string        `json:"tx_ref"`
	Payment     *data.Payment `json:"payment"`
}

func NewTopUpService(models *data.Models, dbConnectionPool db.DBConnectionPool, chapaClient chapa.ClientInterface, baseURL, frontendURL string) *TopUpService {
	return &TopUpService{
		Models:           models,
		DBConnectionPool: dbConnectionPool,
		ChapaClient:      chapaClient,
		BaseURL:          baseURL,
		FrontendURL:      frontendURL,
	}
}

var _ TopUpServiceInterface = (*TopUpService)(nil)

// CreateTopUp charges the user for the given coin package. Coins are NOT
// credited here; the wallet only changes once the provider confirms the
// charge and the webhook settles it.
func (s *TopUpService) CreateTopUp(ctx context.Context, userID, packageID, returnURL string) (*TopUpResponse, error) {
	coinPackage, err := s.Models.CoinPackages.GetActive(ctx, packageID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrInvalidPackage
		}
		return nil, fmt.Errorf("getting coin package %s: %w", packageID, err)
	}

	user, err := s.Models.Users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", userID, err)
	}

	// The wallet row is created eagerly so the settlement path can rely on
	// its existence.
	if _, err = s.Models.Wallets.GetOrCreate(ctx, s.DBConnectionPool, userID); err != nil {
		return nil, fmt.Errorf("ensuring wallet for user %s: %w", userID, err)
	}

	// Checkout sends the customer back to the app when the caller does not
	// ask for a specific page.
	if returnURL == "" {
		returnURL = s.FrontendURL
	}

	txRef := newTxRef("coin", userID)
	payment, err := s.Models.Payments.Insert(ctx, s.DBConnectionPool, data.PaymentInsert{
		UserID:        userID,
		PackageID:     &coinPackage.ID,
		Provider:      data.ChapaPaymentProvider,
		TxRef:         txRef,
		PriceTotalETB: coinPackage.PriceTotalETB,
		VATETB:        coinPackage.VATETB,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting payment for tx_ref %s: %w", txRef, err)
	}

	email, firstName, lastName := providerCustomer(user)
	checkout, err := s.ChapaClient.InitializePayment(ctx, chapa.PaymentRequest{
		Amount:      coinPackage.PriceTotalETB.StringFixed(2),
		Currency:    "ETB",
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: utils.SanitizeEthiopianPhone(user.PhoneNumber),
		TxRef:       txRef,
		CallbackURL: s.BaseURL + "/webhooks/chapa/",
		ReturnURL:   returnURL,
		Customization: &chapa.Customization{
			Title:       "Fikir Coins",
			Description: fmt.Sprintf("%d coins", coinPackage.Coins),
		},
		Meta: map[string]interface{}{
			"user_id":    userID,
			"package_id": coinPackage.ID,
			"payment_id": payment.ID,
			"coins":      coinPackage.Coins,
		},
	})
	if err != nil {
		if chapa.IsUnavailable(err) {
			return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, err)
	}

	if err = s.Models.Payments.AttachCheckout(ctx, s.DBConnectionPool, payment.ID, checkout.CheckoutURL); err != nil {
		// The checkout is already open at the provider, so surface the
		// URL anyway and let the webhook settle by tx_ref.
		log.Ctx(ctx).Errorf("attaching checkout URL to payment %s: %v", payment.ID, err)
	}
	payment.CheckoutURL = &checkout.CheckoutURL

	return &TopUpResponse{
		CheckoutURL: checkout.CheckoutURL,
		TxRef:       txRef,
		Payment:     payment,
	}, nil
}

// newTxRef builds a provider transaction reference like
// "coin-{userID}-{8 hex}", truncated to the provider's length limit.
func newTxRef(prefix, id string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	txRef := fmt.Sprintf("%s-%s-%s", prefix, id, suffix)
	if len(txRef) > chapa.TxRefMaxLength {
		txRef = txRef[:chapa.TxRefMaxLength]
	}
	return txRef
}

// providerCustomer derives the customer fields the provider requires from
// the user profile, falling back to username-based placeholders when the
// profile is incomplete.
func providerCustomer(user *data.User) (email, firstName, lastName string) {
	email = strings.TrimSpace(user.Email)
	if email == "" {
		email = fmt.Sprintf("%s@example.com", user.Username)
	}

	firstName = strings.TrimSpace(user.FirstName)
	if firstName == "" {
		firstName = user.Username
	}

	lastName = strings.TrimSpace(user.LastName)
	if lastName == "" {
		lastName = "User"
	}

	return email, firstName, lastName
}
