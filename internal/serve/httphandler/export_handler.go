package httphandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/validators"
)

// ExportHandler streams admin CSV exports of withdrawals and audit entries.
type ExportHandler struct {
	Models *data.Models
}

type WithdrawalCSV struct {
	ID            string
	UserID        string
	Method        data.WithdrawalMethod
	Destination   string
	AmountETB     decimal.Decimal
	Status        data.WithdrawalStatus
	ProviderRef   *string
	FailureReason *string
	ReviewedBy    *string
	ApprovedAt    *time.Time
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (e ExportHandler) ExportWithdrawals(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	validator := validators.NewWithdrawalQueryValidator()
	queryParams := validator.ParseParametersFromRequest(r)

	if validator.HasErrors() {
		httperror.BadRequest("request invalid", nil, validator.Errors).Render(rw)
		return
	}

	queryParams.Filters = validator.ValidateAndGetWithdrawalFilters(queryParams.Filters)
	if validator.HasErrors() {
		httperror.BadRequest("request invalid", nil, validator.Errors).Render(rw)
		return
	}

	// Exports are full dumps, never paginated.
	queryParams.Page = 0
	queryParams.PageLimit = 0

	withdrawals, err := e.Models.Withdrawals.GetAll(ctx, e.Models.DBConnectionPool, queryParams)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve withdrawals", err, nil).Render(rw)
		return
	}

	withdrawalCSVs := make([]WithdrawalCSV, 0, len(withdrawals))
	for _, wd := range withdrawals {
		withdrawalCSVs = append(withdrawalCSVs, WithdrawalCSV{
			ID:            wd.ID,
			UserID:        wd.UserID,
			Method:        wd.Method,
			Destination:   wd.Destination,
			AmountETB:     wd.AmountETB,
			Status:        wd.Status,
			ProviderRef:   wd.ProviderRef,
			FailureReason: wd.FailureReason,
			ReviewedBy:    wd.ReviewedBy,
			ApprovedAt:    wd.ApprovedAt,
			PaidAt:        wd.PaidAt,
			CreatedAt:     wd.CreatedAt,
			UpdatedAt:     wd.UpdatedAt,
		})
	}

	fileName := fmt.Sprintf("withdrawals_%s.csv", time.Now().Format("2006-01-02-15-04-05"))
	rw.Header().Set("Content-Type", "text/csv")
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))

	if err := gocsv.Marshal(withdrawalCSVs, rw); err != nil {
		httperror.InternalError(ctx, "Cannot write withdrawals CSV", err, nil).Render(rw)
		return
	}
}

type AuditLogCSV struct {
	ID        string
	UserID    *string
	Event     data.AuditEvent
	Metadata  string
	CreatedAt time.Time
}

func (e ExportHandler) ExportAuditLogs(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	validator := validators.NewAuditLogQueryValidator()
	queryParams := validator.ParseParametersFromRequest(r)

	if validator.HasErrors() {
		httperror.BadRequest("request invalid", nil, validator.Errors).Render(rw)
		return
	}

	queryParams.Filters = validator.ValidateAndGetAuditLogFilters(queryParams.Filters)
	if validator.HasErrors() {
		httperror.BadRequest("request invalid", nil, validator.Errors).Render(rw)
		return
	}

	// Exports are full dumps, never paginated.
	queryParams.Page = 0
	queryParams.PageLimit = 0

	entries, err := e.Models.AuditLogs.GetAll(ctx, e.Models.DBConnectionPool, queryParams)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve audit logs", err, nil).Render(rw)
		return
	}

	entryCSVs := make([]AuditLogCSV, 0, len(entries))
	for _, entry := range entries {
		metadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			httperror.InternalError(ctx, "Cannot encode audit metadata", err, nil).Render(rw)
			return
		}
		entryCSVs = append(entryCSVs, AuditLogCSV{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Event:     entry.Event,
			Metadata:  string(metadata),
			CreatedAt: entry.CreatedAt,
		})
	}

	fileName := fmt.Sprintf("audit_logs_%s.csv", time.Now().Format("2006-01-02-15-04-05"))
	rw.Header().Set("Content-Type", "text/csv")
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))

	if err := gocsv.Marshal(entryCSVs, rw); err != nil {
		httperror.InternalError(ctx, "Cannot write audit logs CSV", err, nil).Render(rw)
		return
	}
}
