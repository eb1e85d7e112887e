package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"posservice/pkg/sale/domain/model"
)

const productColumns = `product_id, name, category, selling_price, cost_price, quantity,
	stock_tracking, purpose, version, created_at, updated_at`

type sqlxProduct struct {
	ID            uuid.UUID       `db:"product_id"`
	Name          string          `db:"name"`
	Category      string          `db:"category"`
	SellingPrice  decimal.Decimal `db:"selling_price"`
	CostPrice     decimal.Decimal `db:"cost_price"`
	Quantity      int             `db:"quantity"`
	StockTracking bool            `db:"stock_tracking"`
	Purpose       string          `db:"purpose"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (p sqlxProduct) toModel() model.Product {
	return model.Product{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		SellingPrice:  p.SellingPrice,
		CostPrice:     p.CostPrice,
		Quantity:      p.Quantity,
		StockTracking: p.StockTracking,
		Purpose:       model.Purpose(p.Purpose),
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func NewProductRepository(db *sqlx.DB) model.ProductRepository {
	return &productRepository{db: db}
}

type productRepository struct {
	db sqlx.ExtContext
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var row sqlxProduct
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+productColumns+` FROM product WHERE product_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find product %s", id)
	}
	product := row.toModel()
	return &product, nil
}

func (r *productRepository) ListSellable(ctx context.Context) ([]model.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM product WHERE purpose = ? ORDER BY created_at, product_id`, model.PurposeSale)
}

func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM product ORDER BY created_at, product_id`)
}

// TryDecrementQuantity relies on the row write lock taken by the
// conditional update: concurrent checkouts can never both pass the
// quantity check against the same stock.
func (r *productRepository) TryDecrementQuantity(ctx context.Context, id uuid.UUID, amount int) (model.StockDecrement, error) {
	if amount <= 0 {
		return model.StockDecrement{}, model.ErrInvalidQuantity
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE product SET quantity = quantity - ? WHERE product_id = ? AND stock_tracking = 1 AND quantity >= ?`,
		amount, id, amount,
	)
	if err != nil {
		return model.StockDecrement{}, errors.Wrapf(err, "failed to decrement product %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.StockDecrement{}, errors.WithStack(err)
	}

	var stock struct {
		Quantity      int  `db:"quantity"`
		StockTracking bool `db:"stock_tracking"`
	}
	err = sqlx.GetContext(ctx, r.db, &stock, `SELECT quantity, stock_tracking FROM product WHERE product_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StockDecrement{}, model.ErrProductNotFound
	}
	if err != nil {
		return model.StockDecrement{}, errors.Wrapf(err, "failed to read stock of product %s", id)
	}

	decrement := model.StockDecrement{
		ProductID:   id,
		Requested:   amount,
		Tracked:     stock.StockTracking,
		NewQuantity: stock.Quantity,
	}
	if affected == 0 && stock.StockTracking {
		return model.StockDecrement{}, model.ErrStockConflict
	}
	return decrement, nil
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO product (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Category,
		product.SellingPrice,
		product.CostPrice,
		product.Quantity,
		product.StockTracking,
		string(product.Purpose),
		product.Version,
		product.CreatedAt,
		product.UpdatedAt,
	)
	return errors.Wrapf(err, "failed to create product %s", product.ID)
}

func (r *productRepository) UpdateDetails(ctx context.Context, product *model.Product) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE product
		SET name = ?, category = ?, selling_price = ?, cost_price = ?, stock_tracking = ?,
			purpose = ?, version = ?, updated_at = ?
		WHERE product_id = ? AND version = ?`,
		product.Name,
		product.Category,
		product.SellingPrice,
		product.CostPrice,
		product.StockTracking,
		string(product.Purpose),
		product.Version,
		product.UpdatedAt,
		product.ID,
		product.Version-1,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update product %s", product.ID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.Find(ctx, product.ID); err != nil {
		return err
	}
	return model.ErrOptimisticLock
}

// IncrementQuantity keeps the upper bound in the WHERE clause so the
// column never overflows.
func (r *productRepository) IncrementQuantity(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	if amount <= 0 || amount > model.MaxStockQuantity {
		return 0, model.ErrInvalidStockQuantity
	}
	return r.adjustQuantity(ctx, id,
		`UPDATE product SET quantity = quantity + ? WHERE product_id = ? AND quantity <= ?`,
		model.ErrInvalidStockQuantity,
		amount, id, model.MaxStockQuantity-amount,
	)
}

func (r *productRepository) DecrementQuantity(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	if amount <= 0 || amount > model.MaxStockQuantity {
		return 0, model.ErrInvalidStockQuantity
	}
	return r.adjustQuantity(ctx, id,
		`UPDATE product SET quantity = quantity - ? WHERE product_id = ? AND quantity >= ?`,
		model.ErrStockConflict,
		amount, id, amount,
	)
}

// adjustQuantity runs a conditional update. When no row matches it reads the
// product back to tell a missing product from a failed condition.
func (r *productRepository) adjustQuantity(ctx context.Context, id uuid.UUID, query string, conditionErr error, args ...interface{}) (int, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to adjust stock of product %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}

	var quantity int
	err = sqlx.GetContext(ctx, r.db, &quantity, `SELECT quantity FROM product WHERE product_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrProductNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read stock of product %s", id)
	}
	if affected == 0 {
		return 0, conditionErr
	}
	return quantity, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM product WHERE product_id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete product %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Product, error) {
	var rows []sqlxProduct
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toModel())
	}
	return products, nil
}
