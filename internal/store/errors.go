// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/olegiv/newsdesk-go/internal/errx"
)

// The SQLite drivers in use surface constraint failures as driver-specific
// error types with matching text, so the message is the portable signal.

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign-key failure, which
// SQLite raises both for missing referenced rows and RESTRICT deletes.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// MapError classifies a raw query-layer error into the errx taxonomy.
// Queries return errors untranslated; services and handlers run them through
// here exactly once at the boundary.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errx.E(op, errx.NotFound, err)
	case IsUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)
	case IsForeignKeyViolation(err):
		return errx.E(op, errx.Conflict, err)
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(err.Error(), "database is locked"),
		strings.Contains(err.Error(), "connection"):
		return errx.E(op, errx.Unavailable, err)
	default:
		return errx.E(op, errx.Internal, err)
	}
}
