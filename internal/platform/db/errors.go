package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// PostgreSQL SQLSTATE codes mapped to domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
)

// MapError converts pgx/pgconn errors to shared domain errors.
// Context cancellation is not mapped and passes through wrapped.
func MapError(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", entity, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, shared.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", entity, shared.ErrDuplicate)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w", entity, shared.ErrNotFound)
		case codeCheckViolation, codeInvalidText:
			return fmt.Errorf("%s: %w: %s", entity, shared.ErrValidation, pgErr.Message)
		}
	}

	return fmt.Errorf("%s: %w: %w", entity, shared.ErrStoreUnavailable, err)
}
