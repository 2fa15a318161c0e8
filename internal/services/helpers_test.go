package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
)

// getAuditLogs returns the user's audit rows for one event, newest first.
func getAuditLogs(t *testing.T, ctx context.Context, models *data.Models, sqlExec db.SQLExecuter, userID string, event data.AuditEvent) []data.AuditLog {
	t.Helper()

	logs, err := models.AuditLogs.GetAll(ctx, sqlExec, &data.QueryParams{
		SortBy:    data.SortFieldCreatedAt,
		SortOrder: data.SortOrderDESC,
		Filters: map[data.FilterKey]interface{}{
			data.FilterKeyUserID: userID,
			data.FilterKeyEvent:  event,
		},
	})
	require.NoError(t, err)
	return logs
}
