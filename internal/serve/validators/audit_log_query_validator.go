package validators

import (
	"strings"

	"github.com/fikir-app/fikir-backend/internal/data"
)

type AuditLogQueryValidator struct {
	QueryValidator
}

// NewAuditLogQueryValidator creates a new AuditLogQueryValidator with the provided configuration.
func NewAuditLogQueryValidator() *AuditLogQueryValidator {
	return &AuditLogQueryValidator{
		QueryValidator: QueryValidator{
			DefaultSortField:  data.DefaultAuditLogSortField,
			DefaultSortOrder:  data.DefaultAuditLogSortOrder,
			AllowedSortFields: data.AllowedAuditLogSorts,
			AllowedFilters:    data.AllowedAuditLogFilters,
			Validator:         NewValidator(),
		},
	}
}

// ValidateAndGetAuditLogFilters validates the filters and returns a map of valid filters.
func (qv *AuditLogQueryValidator) ValidateAndGetAuditLogFilters(filters map[data.FilterKey]interface{}) map[data.FilterKey]interface{} {
	validFilters := make(map[data.FilterKey]interface{})
	if filters[data.FilterKeyEvent] != nil {
		validFilters[data.FilterKeyEvent] = qv.validateAndGetAuditEvent(filters[data.FilterKeyEvent].(string))
	}
	if filters[data.FilterKeyUserID] != nil {
		validFilters[data.FilterKeyUserID] = filters[data.FilterKeyUserID]
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

// validateAndGetAuditEvent validates the event parameter and returns the corresponding AuditEvent.
func (qv *AuditLogQueryValidator) validateAndGetAuditEvent(event string) data.AuditEvent {
	e := data.AuditEvent(strings.ToUpper(event))
	if err := e.Validate(); err != nil {
		qv.Check(false, string(data.FilterKeyEvent), "invalid parameter. unknown audit event")
		return ""
	}
	return e
}
