package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientPayment = errors.New("cash received is less than the sale total")
	ErrPersistence         = errors.New("sale could not be saved")

	ErrProductNotFound = errors.New("product not found")
	ErrSaleNotFound    = errors.New("sale not found")
	ErrStockConflict   = errors.New("recorded stock is lower than the requested quantity")
	ErrOptimisticLock  = errors.New("product has been modified by another transaction")
	ErrDuplicateSale   = errors.New("sale with this idempotency key already exists")
)

var (
	ErrEmptyCart             = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrInvalidQuantity       = fmt.Errorf("%w: quantity must be a positive number", ErrValidation)
	ErrInvalidPrice          = fmt.Errorf("%w: price cannot be negative", ErrValidation)
	ErrInvalidProductID      = fmt.Errorf("%w: product id is required", ErrValidation)
	ErrInvalidItemName       = fmt.Errorf("%w: item name is required", ErrValidation)
	ErrNegativeDiscount      = fmt.Errorf("%w: discount cannot be negative", ErrValidation)
	ErrNegativeCashReceived  = fmt.Errorf("%w: cash received cannot be negative", ErrValidation)
	ErrDiscountExceedsTotal  = fmt.Errorf("%w: discount exceeds the sale total", ErrValidation)
	ErrIdempotencyKeyTooLong = fmt.Errorf("%w: idempotency key is longer than %d characters", ErrValidation, MaxIdempotencyKeyLength)

	ErrProductNameRequired     = fmt.Errorf("%w: product name is required", ErrValidation)
	ErrProductCategoryRequired = fmt.Errorf("%w: product category is required", ErrValidation)
	ErrInvalidPurpose          = fmt.Errorf("%w: purpose must be sale or store", ErrValidation)
	ErrInvalidStockQuantity    = fmt.Errorf("%w: stock quantity is out of range", ErrValidation)
	ErrInvalidStockAdjustment  = fmt.Errorf("%w: stock adjustment must be a non-zero number", ErrValidation)

	ErrStoreFieldRequired   = fmt.Errorf("%w: store name, branch name, address and contact number are required", ErrValidation)
	ErrInvalidTaxPercentage = fmt.Errorf("%w: tax percentage must be between 0 and 100", ErrValidation)
)
