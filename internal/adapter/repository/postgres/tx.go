package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

var ErrForeignTx = errors.New("postgres: unit of work was not opened by this adapter")

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

type UnitOfWork struct {
	db *sql.DB
}

func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Begin(ctx context.Context) (ports.Tx, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func sqlTx(tx ports.Tx) (*sql.Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil || t.tx == nil {
		return nil, ErrForeignTx
	}
	return t.tx, nil
}
