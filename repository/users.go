package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/google/uuid"
)

type users interface {
	CreateUser(ctx context.Context, user *data.User) error
	GetUser(ctx context.Context, userID uuid.UUID) (*data.User, error)
}

const usersTable = "users"

type userRow struct {
	ID         uuid.UUID       `db:"id"`
	Email      string          `db:"email"`
	Name       string          `db:"name"`
	Role       data.Role       `db:"role"`
	Membership data.Membership `db:"membership"`
	CreatedAt  time.Time       `db:"created_at"`
	Active     bool            `db:"is_active"`
}

// CreateUser creates a new user record.
func (r *repository) CreateUser(ctx context.Context, user *data.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	query, args, err := toSQL(r.dialect.Insert(usersTable).Prepared(true).
		Rows(goqu.Record{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"role":       string(user.Role),
			"membership": string(user.Membership),
			"is_active":  user.Active,
		}).
		Returning("created_at"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&user.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicateRecord
		default:
			return err
		}
	}
	return nil
}

// GetUser retrieves a user record by its ID.
func (r *repository) GetUser(ctx context.Context, userID uuid.UUID) (*data.User, error) {
	if userID == uuid.Nil {
		return nil, ErrRecordNotFound
	}
	query, args, err := toSQL(r.dialect.From(usersTable).Prepared(true).
		Select("id", "email", "name", "role", "membership", "created_at", "is_active").
		Where(goqu.C("id").Eq(userID)))
	if err != nil {
		return nil, err
	}
	var row userRow
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.GetContext(ctx, &row, query, args...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	user := data.User(row)
	return &user, nil
}
