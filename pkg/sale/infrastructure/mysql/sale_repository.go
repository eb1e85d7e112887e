package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"posservice/pkg/sale/domain/model"
)

const (
	saleColumns = `sale_id, idempotency_key, subtotal, tax, tax_percentage, discount, total,
	fully_discounted, payment_method, cash_received, balance, currency, stock_warnings, created_at`

	mysqlDuplicateEntry = 1062
	idempotencyKeyIndex = "sale_idempotency_key_uk"
)

type sqlxSale struct {
	ID              uuid.UUID       `db:"sale_id"`
	IdempotencyKey  sql.NullString  `db:"idempotency_key"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	Tax             decimal.Decimal `db:"tax"`
	TaxPercentage   decimal.Decimal `db:"tax_percentage"`
	Discount        decimal.Decimal `db:"discount"`
	Total           decimal.Decimal `db:"total"`
	FullyDiscounted bool            `db:"fully_discounted"`
	PaymentMethod   string          `db:"payment_method"`
	CashReceived    decimal.Decimal `db:"cash_received"`
	Balance         decimal.Decimal `db:"balance"`
	Currency        string          `db:"currency"`
	StockWarnings   []byte          `db:"stock_warnings"`
	CreatedAt       time.Time       `db:"created_at"`
}

type sqlxSaleItem struct {
	SaleID    uuid.UUID       `db:"sale_id"`
	Position  int             `db:"position"`
	ProductID uuid.UUID       `db:"product_id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Quantity  int             `db:"quantity"`
}

type stockWarningJSON struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

func NewSaleRepository(db *sqlx.DB) model.SaleLedger {
	return &saleRepository{db: db}
}

type saleRepository struct {
	db sqlx.ExtContext
}

func (r *saleRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

// Append writes the sale and its lines. It must run inside a unit of work
// for the lines to commit together with the header.
func (r *saleRepository) Append(ctx context.Context, sale *model.Sale) error {
	warnings := make([]stockWarningJSON, 0, len(sale.StockWarnings))
	for _, w := range sale.StockWarnings {
		warnings = append(warnings, stockWarningJSON{ProductID: w.ProductID, Quantity: w.Quantity, Reason: string(w.Reason)})
	}
	encodedWarnings, err := json.Marshal(warnings)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sale (`+saleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sql.NullString{String: sale.IdempotencyKey, Valid: sale.IdempotencyKey != ""},
		sale.Subtotal,
		sale.Tax,
		sale.TaxPercentage,
		sale.Discount,
		sale.Total,
		sale.FullyDiscounted,
		sale.PaymentMethod,
		sale.CashReceived,
		sale.Balance,
		sale.Currency,
		encodedWarnings,
		sale.CreatedAt,
	)
	if isDuplicateIdempotencyKey(err) {
		return model.ErrDuplicateSale
	}
	if err != nil {
		return errors.Wrapf(err, "failed to append sale %s", sale.ID)
	}

	for i, item := range sale.Items {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO sale_item (sale_id, position, product_id, name, price, quantity) VALUES (?, ?, ?, ?, ?, ?)`,
			sale.ID, i, item.ProductID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to append line %d of sale %s", i, sale.ID)
		}
	}
	return nil
}

func (r *saleRepository) Find(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	return r.findOne(ctx, `SELECT `+saleColumns+` FROM sale WHERE sale_id = ?`, id)
}

func (r *saleRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.Sale, error) {
	if key == "" {
		return nil, model.ErrSaleNotFound
	}
	return r.findOne(ctx, `SELECT `+saleColumns+` FROM sale WHERE idempotency_key = ?`, key)
}

func (r *saleRepository) List(ctx context.Context) ([]model.Sale, error) {
	var rows []sqlxSale
	err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT `+saleColumns+` FROM sale ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sales")
	}
	if len(rows) == 0 {
		return []model.Sale{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	items, err := r.loadItems(ctx, ids...)
	if err != nil {
		return nil, err
	}

	sales := make([]model.Sale, 0, len(rows))
	for _, row := range rows {
		sale, err := row.toModel(items[row.ID])
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

func (r *saleRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Sale, error) {
	var row sqlxSale
	err := sqlx.GetContext(ctx, r.db, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSaleNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find sale")
	}

	items, err := r.loadItems(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	sale, err := row.toModel(items[row.ID])
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) loadItems(ctx context.Context, saleIDs ...uuid.UUID) (map[uuid.UUID][]model.LineItem, error) {
	query, args, err := sqlx.In(
		`SELECT sale_id, position, product_id, name, price, quantity FROM sale_item WHERE sale_id IN (?) ORDER BY sale_id, position`,
		saleIDs,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var rows []sqlxSaleItem
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to load sale lines")
	}

	items := make(map[uuid.UUID][]model.LineItem, len(saleIDs))
	for _, row := range rows {
		items[row.SaleID] = append(items[row.SaleID], model.LineItem{
			ProductID: row.ProductID,
			Name:      row.Name,
			Price:     row.Price,
			Quantity:  row.Quantity,
		})
	}
	return items, nil
}

func (s sqlxSale) toModel(items []model.LineItem) (model.Sale, error) {
	var warnings []stockWarningJSON
	if len(s.StockWarnings) > 0 {
		if err := json.Unmarshal(s.StockWarnings, &warnings); err != nil {
			return model.Sale{}, errors.Wrapf(err, "corrupted stock warnings of sale %s", s.ID)
		}
	}

	sale := model.Sale{
		ID:              s.ID,
		IdempotencyKey:  s.IdempotencyKey.String,
		Items:           items,
		Subtotal:        s.Subtotal,
		Tax:             s.Tax,
		TaxPercentage:   s.TaxPercentage,
		Discount:        s.Discount,
		Total:           s.Total,
		FullyDiscounted: s.FullyDiscounted,
		PaymentMethod:   s.PaymentMethod,
		CashReceived:    s.CashReceived,
		Balance:         s.Balance,
		Currency:        s.Currency,
		CreatedAt:       s.CreatedAt,
	}
	for _, w := range warnings {
		sale.StockWarnings = append(sale.StockWarnings, model.StockWarning{
			ProductID: w.ProductID,
			Quantity:  w.Quantity,
			Reason:    model.DecrementOutcome(w.Reason),
		})
	}
	return sale, nil
}

func isDuplicateIdempotencyKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != mysqlDuplicateEntry {
		return false
	}
	return strings.Contains(mysqlErr.Message, idempotencyKeyIndex)
}
