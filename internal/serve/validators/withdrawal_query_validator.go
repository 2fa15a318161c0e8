package validators

import (
	"strings"

	"github.com/fikir-app/fikir-backend/internal/data"
)

type WithdrawalQueryValidator struct {
	QueryValidator
}

// NewWithdrawalQueryValidator creates a new WithdrawalQueryValidator with the provided configuration.
func NewWithdrawalQueryValidator() *WithdrawalQueryValidator {
	return &WithdrawalQueryValidator{
		QueryValidator: QueryValidator{
			DefaultSortField:  data.DefaultWithdrawalSortField,
			DefaultSortOrder:  data.DefaultWithdrawalSortOrder,
			AllowedSortFields: data.AllowedWithdrawalSorts,
			AllowedFilters:    data.AllowedWithdrawalFilters,
			Validator:         NewValidator(),
		},
	}
}

// ValidateAndGetWithdrawalFilters validates the filters and returns a map of valid filters.
func (qv *WithdrawalQueryValidator) ValidateAndGetWithdrawalFilters(filters map[data.FilterKey]interface{}) map[data.FilterKey]interface{} {
	validFilters := make(map[data.FilterKey]interface{})
	if filters[data.FilterKeyStatus] != nil {
		validFilters[data.FilterKeyStatus] = qv.validateAndGetWithdrawalStatus(filters[data.FilterKeyStatus].(string))
	}
	if filters[data.FilterKeyUserID] != nil {
		validFilters[data.FilterKeyUserID] = filters[data.FilterKeyUserID]
	}
	if filters[data.FilterKeyMethod] != nil {
		validFilters[data.FilterKeyMethod] = qv.validateAndGetWithdrawalMethod(filters[data.FilterKeyMethod].(string))
	}

	createdAtAfter := qv.ValidateAndGetTimeParams(string(data.FilterKeyCreatedAtAfter), filters[data.FilterKeyCreatedAtAfter])
	createdAtBefore := qv.ValidateAndGetTimeParams(string(data.FilterKeyCreatedAtBefore), filters[data.FilterKeyCreatedAtBefore])

	if qv.HasErrors() {
		return validFilters
	}

	if !createdAtAfter.IsZero() && !createdAtBefore.IsZero() {
		qv.Check(createdAtAfter.Before(createdAtBefore), string(data.FilterKeyCreatedAtAfter), "created_at_after must be before created_at_before")
	}

	if !createdAtAfter.IsZero() {
		validFilters[data.FilterKeyCreatedAtAfter] = createdAtAfter
	}
	if !createdAtBefore.IsZero() {
		validFilters[data.FilterKeyCreatedAtBefore] = createdAtBefore
	}
	return validFilters
}

// validateAndGetWithdrawalStatus validates the status parameter and returns the corresponding WithdrawalStatus.
func (qv *WithdrawalQueryValidator) validateAndGetWithdrawalStatus(status string) data.WithdrawalStatus {
	s := data.WithdrawalStatus(strings.ToUpper(status))
	switch s {
	case data.PendingWithdrawalStatus, data.ApprovedWithdrawalStatus, data.RejectedWithdrawalStatus, data.PaidWithdrawalStatus:
		return s
	default:
		qv.Check(false, string(data.FilterKeyStatus), "invalid parameter. valid values are: pending, approved, rejected, paid")
		return ""
	}
}

// validateAndGetWithdrawalMethod validates the method parameter and returns the corresponding WithdrawalMethod.
func (qv *WithdrawalQueryValidator) validateAndGetWithdrawalMethod(method string) data.WithdrawalMethod {
	m := data.WithdrawalMethod(strings.ToUpper(method))
	if err := m.Validate(); err != nil {
		qv.Check(false, string(data.FilterKeyMethod), "invalid parameter. valid values are: chapa, telebirr")
		return ""
	}
	return m
}
