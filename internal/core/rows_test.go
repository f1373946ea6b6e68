package core

import (
	"github.com/edvin/oportunia/internal/db/dbtest"
	"github.com/edvin/oportunia/internal/model"
)

// newHistoryRows yields entries in the column order of HistoryService.List.
func newHistoryRows(entries ...model.SearchHistory) *dbtest.Rows {
	values := make([][]any, 0, len(entries))
	for _, h := range entries {
		values = append(values, []any{h.ID, h.UserID, h.CategoryID, h.CategoryName, h.ResultCount, h.CreatedAt})
	}
	return dbtest.NewRows(values...)
}
