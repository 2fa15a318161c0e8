package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/fikir-app/fikir-backend/internal/data"
)

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

// MockTopUpService is a mock implementation of TopUpServiceInterface
type MockTopUpService struct {
	mock.Mock
}

var _ TopUpServiceInterface = new(MockTopUpService)

func (m *MockTopUpService) CreateTopUp(ctx context.Context, userID, packageID, returnURL string) (*TopUpResponse, error) {
	args := m.Called(ctx, userID, packageID, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TopUpResponse), args.Error(1)
}

func NewMockTopUpService(t testInterface) *MockTopUpService {
	mock := &MockTopUpService{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockWebhookService is a mock implementation of WebhookServiceInterface
type MockWebhookService struct {
	mock.Mock
}

var _ WebhookServiceInterface = new(MockWebhookService)

func (m *MockWebhookService) ProcessEvent(ctx context.Context, event WebhookEvent) (WebhookOutcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(WebhookOutcome), args.Error(1)
}

func NewMockWebhookService(t testInterface) *MockWebhookService {
	mock := &MockWebhookService{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockGiftService is a mock implementation of GiftServiceInterface
type MockGiftService struct {
	mock.Mock
}

var _ GiftServiceInterface = new(MockGiftService)

func (m *MockGiftService) SendGift(ctx context.Context, req GiftSendRequest) (*GiftSendResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GiftSendResponse), args.Error(1)
}

func NewMockGiftService(t testInterface) *MockGiftService {
	mock := &MockGiftService{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockWithdrawalService is a mock implementation of WithdrawalServiceInterface
type MockWithdrawalService struct {
	mock.Mock
}

var _ WithdrawalServiceInterface = new(MockWithdrawalService)

func (m *MockWithdrawalService) CreateWithdrawal(ctx context.Context, userID string, method data.WithdrawalMethod, destination string, amount decimal.Decimal) (*data.Withdrawal, error) {
	args := m.Called(ctx, userID, method, destination, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) Approve(ctx context.Context, reviewerID, withdrawalID string) (*data.Withdrawal, error) {
	args := m.Called(ctx, reviewerID, withdrawalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) Reject(ctx context.Context, reviewerID, withdrawalID, reason string) (*data.Withdrawal, error) {
	args := m.Called(ctx, reviewerID, withdrawalID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) GetWithdrawalsWithCount(ctx context.Context, queryParams *data.QueryParams) (*WithdrawalsPaginatedResponse, error) {
	args := m.Called(ctx, queryParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WithdrawalsPaginatedResponse), args.Error(1)
}

func NewMockWithdrawalService(t testInterface) *MockWithdrawalService {
	mock := &MockWithdrawalService{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockPayoutProcessor is a mock implementation of PayoutProcessorInterface
type MockPayoutProcessor struct {
	mock.Mock
}

var _ PayoutProcessorInterface = new(MockPayoutProcessor)

func (m *MockPayoutProcessor) ProcessPayout(ctx context.Context, withdrawalID string) error {
	args := m.Called(ctx, withdrawalID)
	return args.Error(0)
}

func NewMockPayoutProcessor(t testInterface) *MockPayoutProcessor {
	mock := &MockPayoutProcessor{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockSubscriptionService is a mock implementation of both
// SubscriptionServiceInterface and SubscriptionSettlerInterface
type MockSubscriptionService struct {
	mock.Mock
}

var (
	_ SubscriptionServiceInterface = new(MockSubscriptionService)
	_ SubscriptionSettlerInterface = new(MockSubscriptionService)
)

func (m *MockSubscriptionService) Plans() []Plan {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]Plan)
}

func (m *MockSubscriptionService) Subscribe(ctx context.Context, userID string, planCode data.SubscriptionPlan, returnURL string) (*SubscribeResponse, error) {
	args := m.Called(ctx, userID, planCode, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscribeResponse), args.Error(1)
}

func (m *MockSubscriptionService) Activate(ctx context.Context, userID, txRef string) (*data.SubscriptionPurchase, error) {
	args := m.Called(ctx, userID, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.SubscriptionPurchase), args.Error(1)
}

func (m *MockSubscriptionService) Settle(ctx context.Context, txRef string, providerRef *string, gwFeeETB decimal.Decimal) (*SubscriptionSettleResult, error) {
	args := m.Called(ctx, txRef, providerRef, gwFeeETB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionSettleResult), args.Error(1)
}

func NewMockSubscriptionService(t testInterface) *MockSubscriptionService {
	mock := &MockSubscriptionService{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockKYCService is a mock implementation of KYCServiceInterface
type MockKYCService struct {
	mock.Mock
}

var _ KYCServiceInterface = new(MockKYCService)

func (m *MockKYCService) Submit(ctx context.Context, userID string, docType data.KYCDocType, document, selfie []byte) (*KYCSubmitResult, error) {
	args := m.Called(ctx, userID, docType, document, selfie)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*KYCSubmitResult), args.Error(1)
}

func (m *MockKYCService) Review(ctx context.Context, reviewerID, submissionID string, verdict data.KYCStatus, notes *string) (*data.KYCSubmission, error) {
	args := m.Called(ctx, reviewerID, submissionID, verdict, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.KYCSubmission), args.Error(1)
}

func NewMockKYCService(t testInterface) *MockKYCService {
	mock := &MockKYCService{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockRiskEvaluator is a mock implementation of RiskEvaluatorInterface
type MockRiskEvaluator struct {
	mock.Mock
}

var _ RiskEvaluatorInterface = new(MockRiskEvaluator)

func (m *MockRiskEvaluator) EvaluateAndApply(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func NewMockRiskEvaluator(t testInterface) *MockRiskEvaluator {
	mock := &MockRiskEvaluator{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockDevService is a mock implementation of DevServiceInterface
type MockDevService struct {
	mock.Mock
}

var _ DevServiceInterface = new(MockDevService)

func (m *MockDevService) GrantCoins(ctx context.Context, userID string, coins int64) (*data.Wallet, error) {
	args := m.Called(ctx, userID, coins)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Wallet), args.Error(1)
}

func NewMockDevService(t testInterface) *MockDevService {
	mock := &MockDevService{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
