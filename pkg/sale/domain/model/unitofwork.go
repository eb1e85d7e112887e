package model

import "context"

type RepositoryProvider interface {
	Catalog() Catalog
	SaleLedger() SaleLedger
}

// UnitOfWork runs fn inside one storage transaction. Nothing fn wrote is
// visible to other callers unless fn returns nil and the commit succeeds.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(provider RepositoryProvider) error) error
}
