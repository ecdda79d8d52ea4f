package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// TxRunner runs fn inside one database transaction. fn must only use tx.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	SetDB(db *gorm.DB)
}

type txRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *txRunner) SetDB(db *gorm.DB) {
	r.db = db
}
