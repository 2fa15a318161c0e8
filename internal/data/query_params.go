package data

import "fmt"

type QueryParams struct {
	Query     string
	Page      int
	PageLimit int
	SortBy    SortField
	SortOrder SortOrder
	Filters   map[FilterKey]interface{}
}

type SortOrder string

const (
	SortOrderASC  SortOrder = "ASC"
	SortOrderDESC SortOrder = "DESC"
)

type SortField string

const (
	SortFieldCreatedAt SortField = "created_at"
	SortFieldUpdatedAt SortField = "updated_at"
	SortFieldAmountETB SortField = "amount_etb"
)

type FilterKey string

const (
	FilterKeyID              FilterKey = "id"
	FilterKeyStatus          FilterKey = "status"
	FilterKeyUserID          FilterKey = "user_id"
	FilterKeyMethod          FilterKey = "method"
	FilterKeyEvent           FilterKey = "event"
	FilterKeyCreatedAtAfter  FilterKey = "created_at_after"
	FilterKeyCreatedAtBefore FilterKey = "created_at_before"
)

func (fk FilterKey) Equals() string {
	return fmt.Sprintf("%s = ?", fk)
}
