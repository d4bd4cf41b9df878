package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
)

// Repository defines the app's repository layer.
type Repository interface {
	books
	users
	loans
	reservations
	// RunInTx runs fn against a Repository bound to a single unit of work.
	// The work is committed when fn returns nil and rolled back otherwise.
	// Calling RunInTx on a Repository that is already inside a unit of work
	// reuses it.
	RunInTx(ctx context.Context, fn func(tx Repository) error) error
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type repository struct {
	db      *sqlx.DB
	q       querier
	inTx    bool
	dialect goqu.DialectWrapper
}

// New creates a new instance of Repository backed by Postgres.
func New(db *sql.DB) *repository {
	xdb := sqlx.NewDb(db, "postgres")
	return &repository{db: xdb, q: xdb, dialect: goqu.Dialect("postgres")}
}

func (r *repository) RunInTx(ctx context.Context, fn func(tx Repository) error) (err error) {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(&repository{db: r.db, q: tx, inTx: true, dialect: r.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// toSQL renders a goqu dataset as a prepared statement.
func toSQL(ds interface {
	ToSQL() (string, []interface{}, error)
}) (string, []interface{}, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("building query: %w", err)
	}
	return query, args, nil
}
