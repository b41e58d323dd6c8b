/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package postgres

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/suparena/mfgstore/errors"
	"github.com/suparena/mfgstore/registry"
)

// identifierPattern is the shape every table, column and channel name must
// satisfy before it is interpolated into SQL. Values never go through this
// path; they are always bound parameters.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return errors.NewValidationError(name, "is not a valid SQL identifier")
	}
	return nil
}

// buildSelectSQL produces the read-all query, returning each row as a single
// jsonb document.
func buildSelectSQL(tm registry.TableMap) (string, error) {
	if err := validIdentifier(tm.Table); err != nil {
		return "", err
	}
	sql := fmt.Sprintf("SELECT to_jsonb(t.*) FROM %s t", tm.Table)
	if tm.OrderBy != "" {
		for _, col := range strings.Split(tm.OrderBy, ",") {
			if err := validIdentifier(strings.TrimSpace(col)); err != nil {
				return "", err
			}
		}
		sql += " ORDER BY " + tm.OrderBy
	}
	return sql, nil
}

// buildInsertSQL produces an insert that takes the record as one jsonb
// parameter and returns the stored row the same way, so server-side defaults
// (timestamps, generated columns) come back in the canonical record.
func buildInsertSQL(tm registry.TableMap) (string, error) {
	if err := validIdentifier(tm.Table); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"INSERT INTO %s AS t SELECT * FROM jsonb_populate_record(NULL::%s, $1) RETURNING to_jsonb(t.*)",
		tm.Table, tm.Table,
	), nil
}

// buildUpdateSQL produces a partial update from the changes map. Column names
// are validated and sorted so the statement is deterministic; the key lands
// in the final parameter slot.
func buildUpdateSQL(tm registry.TableMap, key string, changes map[string]any) (string, []any, error) {
	if err := validIdentifier(tm.Table); err != nil {
		return "", nil, err
	}
	if err := validIdentifier(tm.KeyColumn); err != nil {
		return "", nil, err
	}
	if len(changes) == 0 {
		return "", nil, errors.NewValidationError("", "update requires at least one changed column")
	}

	cols := make([]string, 0, len(changes))
	for col := range changes {
		if err := validIdentifier(col); err != nil {
			return "", nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sets []string
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, changes[col])
	}
	args = append(args, key)

	sql := fmt.Sprintf(
		"UPDATE %s AS t SET %s WHERE %s = $%d RETURNING to_jsonb(t.*)",
		tm.Table, strings.Join(sets, ", "), tm.KeyColumn, len(args),
	)
	return sql, args, nil
}

func buildDeleteSQL(tm registry.TableMap) (string, error) {
	if err := validIdentifier(tm.Table); err != nil {
		return "", err
	}
	if err := validIdentifier(tm.KeyColumn); err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", tm.Table, tm.KeyColumn), nil
}
