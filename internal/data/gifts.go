package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
)

// Gift is a catalog item a member can send to another member. Coins is the
// price the sender pays and ValueETB is the monetary value the split is
// computed from.
type Gift struct {
	ID        string          `json:"id" csv:"-" db:"id"`
	Name      string          `json:"name" csv:"name" db:"name"`
	Coins     int64           `json:"coins" csv:"coins" db:"coins"`
	ValueETB  decimal.Decimal `json:"value_etb" csv:"value_etb" db:"value_etb"`
	Icon      string          `json:"icon" csv:"icon" db:"icon"`
	IsActive  bool            `json:"is_active" csv:"-" db:"is_active"`
	CreatedAt time.Time       `json:"created_at" csv:"-" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" csv:"-" db:"updated_at"`
}

type GiftInsert struct {
	Name     string
	Coins    int64
	ValueETB decimal.Decimal
	Icon     string
}

func (i GiftInsert) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if i.Coins <= 0 {
		return fmt.Errorf("coins must be positive")
	}
	if !i.ValueETB.IsPositive() {
		return fmt.Errorf("value_etb must be positive")
	}
	return nil
}

type GiftModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *GiftModel) Get(ctx context.Context, id string) (*Gift, error) {
	var gift Gift
	query := `
		SELECT
			*
		FROM
			gifts g
		WHERE
			g.id = $1
	`

	err := m.dbConnectionPool.GetContext(ctx, &gift, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying gift ID %s: %w", id, err)
	}
	return &gift, nil
}

// GetActive returns the gift only while it is sendable.
func (m *GiftModel) GetActive(ctx context.Context, id string) (*Gift, error) {
	var gift Gift
	query := `
		SELECT
			*
		FROM
			gifts g
		WHERE
			g.id = $1
			AND g.is_active = true
	`

	err := m.dbConnectionPool.GetContext(ctx, &gift, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying active gift ID %s: %w", id, err)
	}
	return &gift, nil
}

// GetAll returns the catalog, cheapest first.
func (m *GiftModel) GetAll(ctx context.Context, activeOnly bool) ([]Gift, error) {
	gifts := []Gift{}
	query := `
		SELECT
			*
		FROM
			gifts g
	`
	if activeOnly {
		query += `
		WHERE
			g.is_active = true
		`
	}
	query += `
		ORDER BY
			g.coins ASC, g.name ASC
	`

	err := m.dbConnectionPool.SelectContext(ctx, &gifts, query)
	if err != nil {
		return nil, fmt.Errorf("selecting gifts: %w", err)
	}
	return gifts, nil
}

func (m *GiftModel) Insert(ctx context.Context, insert GiftInsert) (*Gift, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating gift insert: %w", err)
	}

	const query = `
		INSERT INTO gifts
			(name, coins, value_etb, icon)
		VALUES
			($1, $2, $3, $4)
		RETURNING
			*
	`

	var gift Gift
	err := m.dbConnectionPool.GetContext(ctx, &gift, query, insert.Name, insert.Coins, insert.ValueETB, insert.Icon)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting gift %s: %w", insert.Name, err)
	}
	return &gift, nil
}
