package data

import (
	"context"
	"database/sql"
	"fmt"

	"clickpipe/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// Compile-time interface check
var _ biz.UnitOfWork = (*unitOfWork)(nil)

type txKey struct{}

type unitOfWork struct {
	db  *sql.DB
	log *log.Helper
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(data *Data, logger log.Logger) biz.UnitOfWork {
	return &unitOfWork{
		db:  data.db,
		log: log.NewHelper(log.With(logger, "module", "data/uow")),
	}
}

// Do executes fn within a database transaction. Repositories called with the
// context passed to fn join the transaction. A nested Do reuses the outer one.
func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			u.log.WithContext(ctx).Errorf("rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TxFromContext retrieves the transaction from context.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}
