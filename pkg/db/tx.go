package db

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// ContextWithTx stores tx on ctx for repositories to pick up.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored by ContextWithTx.
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Conn resolves the handle a query should run on: the ambient transaction when
// present, otherwise fallback bound to ctx.
func Conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	if ctx == nil {
		return fallback
	}
	return fallback.WithContext(ctx)
}
