package mysql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"posservice/pkg/sale/domain/model"
)

func NewUnitOfWork(db *sqlx.DB) model.UnitOfWork {
	return &unitOfWork{db: db}
}

type unitOfWork struct {
	db *sqlx.DB
}

// Execute runs fn inside one transaction. Stock decrements are single
// conditional updates, so read committed is enough to keep them exact.
func (u *unitOfWork) Execute(ctx context.Context, fn func(provider model.RepositoryProvider) error) (err error) {
	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = fn(&provider{
		catalog: &productRepository{db: tx},
		ledger:  &saleRepository{db: tx},
	})
	if err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

type provider struct {
	catalog model.Catalog
	ledger  model.SaleLedger
}

func (p *provider) Catalog() model.Catalog       { return p.catalog }
func (p *provider) SaleLedger() model.SaleLedger { return p.ledger }
