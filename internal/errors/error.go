// Package errors provides custom error types for product-related operations.
package errors

import "errors"

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrDuplicateExternalID = errors.New("product external ID already exists")
	ErrInvalidProduct      = errors.New("invalid product data")
	ErrInvalidTag          = errors.New("invalid tag")
	ErrEmptySelection      = errors.New("external ID list must not be empty")
	ErrStoreUnavailable    = errors.New("product store unavailable")
)
