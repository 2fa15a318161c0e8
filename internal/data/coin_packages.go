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

// CoinPackage is a purchasable coin bundle. The stored price columns are
// derived once at creation time from the target net amount and the tax and
// gateway rates in force, so settlement never re-prices.
type CoinPackage struct {
	ID            string          `json:"id" csv:"-" db:"id"`
	Name          string          `json:"name" csv:"name" db:"name"`
	Coins         int64           `json:"coins" csv:"coins" db:"coins"`
	TargetNetETB  decimal.Decimal `json:"target_net_etb" csv:"target_net_etb" db:"target_net_etb"`
	BaseETB       decimal.Decimal `json:"base_etb" csv:"-" db:"base_etb"`
	VATETB        decimal.Decimal `json:"vat_etb" csv:"-" db:"vat_etb"`
	PriceTotalETB decimal.Decimal `json:"price_total_etb" csv:"-" db:"price_total_etb"`
	IsActive      bool            `json:"is_active" csv:"-" db:"is_active"`
	CreatedAt     time.Time       `json:"created_at" csv:"-" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" csv:"-" db:"updated_at"`
}

type CoinPackageInsert struct {
	Name          string
	Coins         int64
	TargetNetETB  decimal.Decimal
	BaseETB       decimal.Decimal
	VATETB        decimal.Decimal
	PriceTotalETB decimal.Decimal
}

func (i CoinPackageInsert) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if i.Coins <= 0 {
		return fmt.Errorf("coins must be positive")
	}
	if !i.PriceTotalETB.IsPositive() {
		return fmt.Errorf("price_total_etb must be positive")
	}
	return nil
}

type CoinPackageModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *CoinPackageModel) Get(ctx context.Context, id string) (*CoinPackage, error) {
	var pkg CoinPackage
	query := `
		SELECT
			*
		FROM
			coin_packages p
		WHERE
			p.id = $1
	`

	err := m.dbConnectionPool.GetContext(ctx, &pkg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying coin package ID %s: %w", id, err)
	}
	return &pkg, nil
}

// GetActive returns the package only while it is purchasable.
func (m *CoinPackageModel) GetActive(ctx context.Context, id string) (*CoinPackage, error) {
	var pkg CoinPackage
	query := `
		SELECT
			*
		FROM
			coin_packages p
		WHERE
			p.id = $1
			AND p.is_active = true
	`

	err := m.dbConnectionPool.GetContext(ctx, &pkg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying active coin package ID %s: %w", id, err)
	}
	return &pkg, nil
}

// GetAll returns the catalog, cheapest first.
func (m *CoinPackageModel) GetAll(ctx context.Context, activeOnly bool) ([]CoinPackage, error) {
	packages := []CoinPackage{}
	query := `
		SELECT
			*
		FROM
			coin_packages p
	`
	if activeOnly {
		query += `
		WHERE
			p.is_active = true
		`
	}
	query += `
		ORDER BY
			p.price_total_etb ASC
	`

	err := m.dbConnectionPool.SelectContext(ctx, &packages, query)
	if err != nil {
		return nil, fmt.Errorf("selecting coin packages: %w", err)
	}
	return packages, nil
}

func (m *CoinPackageModel) Insert(ctx context.Context, insert CoinPackageInsert) (*CoinPackage, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating coin package insert: %w", err)
	}

	const query = `
		INSERT INTO coin_packages
			(name, coins, target_net_etb, base_etb, vat_etb, price_total_etb)
		VALUES
			($1, $2, $3, $4, $5, $6)
		RETURNING
			*
	`

	var pkg CoinPackage
	err := m.dbConnectionPool.GetContext(ctx, &pkg, query,
		insert.Name, insert.Coins, insert.TargetNetETB, insert.BaseETB, insert.VATETB, insert.PriceTotalETB)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting coin package %s: %w", insert.Name, err)
	}
	return &pkg, nil
}
