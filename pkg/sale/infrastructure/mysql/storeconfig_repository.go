package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"posservice/pkg/sale/domain/model"
)

// the configuration is a single row
const storeConfigID = 1

type sqlxStoreConfig struct {
	StoreName     string          `db:"store_name"`
	BranchName    string          `db:"branch_name"`
	Address       string          `db:"address"`
	ContactNumber string          `db:"contact_number"`
	TaxNumber     string          `db:"tax_number"`
	Currency      string          `db:"currency"`
	TaxPercentage decimal.Decimal `db:"tax_percentage"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func NewStoreConfigRepository(db *sqlx.DB) model.StoreConfigRepository {
	return &storeConfigRepository{db: db}
}

type storeConfigRepository struct {
	db sqlx.ExtContext
}

func (r *storeConfigRepository) Get(ctx context.Context) (*model.StoreConfig, error) {
	var row sqlxStoreConfig
	err := sqlx.GetContext(ctx, r.db, &row,
		`SELECT store_name, branch_name, address, contact_number, tax_number, currency, tax_percentage, updated_at
		FROM store_config WHERE config_id = ?`,
		storeConfigID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrStoreConfigNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load store config")
	}
	return &model.StoreConfig{
		StoreName:     row.StoreName,
		BranchName:    row.BranchName,
		Address:       row.Address,
		ContactNumber: row.ContactNumber,
		TaxNumber:     row.TaxNumber,
		Currency:      row.Currency,
		TaxPercentage: row.TaxPercentage,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (r *storeConfigRepository) Save(ctx context.Context, config *model.StoreConfig) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO store_config
			(config_id, store_name, branch_name, address, contact_number, tax_number, currency, tax_percentage, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			store_name = VALUES(store_name),
			branch_name = VALUES(branch_name),
			address = VALUES(address),
			contact_number = VALUES(contact_number),
			tax_number = VALUES(tax_number),
			currency = VALUES(currency),
			tax_percentage = VALUES(tax_percentage),
			updated_at = VALUES(updated_at)`,
		storeConfigID,
		config.StoreName,
		config.BranchName,
		config.Address,
		config.ContactNumber,
		config.TaxNumber,
		config.Currency,
		config.TaxPercentage,
		config.UpdatedAt,
	)
	return errors.Wrap(err, "failed to save store config")
}
