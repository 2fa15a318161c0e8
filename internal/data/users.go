package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fikir-app/fikir-backend/db"
)

// User is the minimal identity row the payments core consumes. The full
// profile (photos, preferences, matching) lives in the app shell and is out
// of scope here.
type User struct {
	ID                string     `json:"id" db:"id"`
	Username          string     `json:"username" db:"username"`
	Email             string     `json:"email,omitempty" db:"email"`
	FirstName         string     `json:"first_name,omitempty" db:"first_name"`
	LastName          string     `json:"last_name,omitempty" db:"last_name"`
	PhoneNumber       string     `json:"phone_number,omitempty" db:"phone_number"`
	IsAdmin           bool       `json:"-" db:"is_admin"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	HasBoost          bool       `json:"has_boost" db:"has_boost"`
	BoostExpiry       *time.Time `json:"boost_expiry,omitempty" db:"boost_expiry"`
	CanSeeLikes       bool       `json:"can_see_likes" db:"can_see_likes"`
	LikesRevealExpiry *time.Time `json:"likes_reveal_expiry,omitempty" db:"likes_reveal_expiry"`
	AdFree            bool       `json:"ad_free" db:"ad_free"`
	AdFreeExpiry      *time.Time `json:"ad_free_expiry,omitempty" db:"ad_free_expiry"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Perks is the effective perk snapshot for a user at a point in time.
type Perks struct {
	Boost             bool       `json:"boost"`
	BoostExpiry       *time.Time `json:"boost_expiry,omitempty"`
	LikesReveal       bool       `json:"likes_reveal"`
	LikesRevealExpiry *time.Time `json:"likes_reveal_expiry,omitempty"`
	AdFree            bool       `json:"ad_free"`
	AdFreeExpiry      *time.Time `json:"ad_free_expiry,omitempty"`
}

// EffectivePerks resolves the stored perk columns as of now. A perk counts
// only while its expiry is strictly in the future.
func (u User) EffectivePerks(now time.Time) Perks {
	enabled := func(flag bool, expiry *time.Time) bool {
		return flag && expiry != nil && expiry.After(now)
	}
	return Perks{
		Boost:             enabled(u.HasBoost, u.BoostExpiry),
		BoostExpiry:       u.BoostExpiry,
		LikesReveal:       enabled(u.CanSeeLikes, u.LikesRevealExpiry),
		LikesRevealExpiry: u.LikesRevealExpiry,
		AdFree:            enabled(u.AdFree, u.AdFreeExpiry),
		AdFreeExpiry:      u.AdFreeExpiry,
	}
}

type UserInsert struct {
	Username    string `db:"username"`
	Email       string `db:"email"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	PhoneNumber string `db:"phone_number"`
	IsAdmin     bool   `db:"is_admin"`
}

func (u UserInsert) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

type UserModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *UserModel) Get(ctx context.Context, id string) (*User, error) {
	var user User
	query := `
		SELECT
			*
		FROM
			users u
		WHERE
			u.id = $1
	`

	err := m.dbConnectionPool.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying user ID %s: %w", id, err)
	}
	return &user, nil
}

func (m *UserModel) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	query := `
		SELECT
			*
		FROM
			users u
		WHERE
			u.username = $1
	`

	err := m.dbConnectionPool.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying user with username %s: %w", username, err)
	}
	return &user, nil
}

// ExistsActive reports whether an active user row exists for the given id.
func (m *UserModel) ExistsActive(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE id = $1
			AND is_active = true
		)
	`
	var exists bool
	err := m.dbConnectionPool.GetContext(ctx, &exists, query, id)
	if err != nil {
		return false, fmt.Errorf("checking user existence for %s: %w", id, err)
	}
	return exists, nil
}

func (m *UserModel) Insert(ctx context.Context, insert UserInsert) (*User, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating user insert: %w", err)
	}

	const query = `
		INSERT INTO users
			(username, email, first_name, last_name, phone_number, is_admin)
		VALUES
			($1, $2, $3, $4, $5, $6)
		RETURNING
			*
	`

	var user User
	err := m.dbConnectionPool.GetContext(ctx, &user, query,
		insert.Username, insert.Email, insert.FirstName, insert.LastName, insert.PhoneNumber, insert.IsAdmin)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting user %s: %w", insert.Username, err)
	}
	return &user, nil
}

// GrantPerk mirrors a completed subscription onto the user's perk columns.
// Runs inside the caller's transaction.
func (m *UserModel) GrantPerk(ctx context.Context, sqlExec db.SQLExecuter, userID string, plan SubscriptionPlan, expiresAt time.Time) error {
	flagColumn, expiryColumn, err := plan.PerkColumns()
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET
			%s = true,
			%s = $1,
			updated_at = NOW()
		WHERE
			id = $2
	`, flagColumn, expiryColumn)

	result, err := sqlExec.ExecContext(ctx, query, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("granting %s perk to user %s: %w", plan, userID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ClearExpiredPerks disables every perk flag whose expiry is not in the
// future. It returns the total number of user rows touched and is safe to run
// repeatedly.
func (m *UserModel) ClearExpiredPerks(ctx context.Context, sqlExec db.SQLExecuter, now time.Time) (int64, error) {
	var total int64
	for _, plan := range SubscriptionPlans() {
		flagColumn, expiryColumn, err := plan.PerkColumns()
		if err != nil {
			return total, err
		}

		query := fmt.Sprintf(`
			UPDATE users
			SET
				%s = false,
				updated_at = NOW()
			WHERE
				%s = true
				AND %s IS NOT NULL
				AND %s <= $1
		`, flagColumn, flagColumn, expiryColumn, expiryColumn)

		result, err := sqlExec.ExecContext(ctx, query, now)
		if err != nil {
			return total, fmt.Errorf("clearing expired %s perks: %w", plan, err)
		}
		numRowsAffected, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("getting number of rows affected: %w", err)
		}
		total += numRowsAffected
	}
	return total, nil
}
