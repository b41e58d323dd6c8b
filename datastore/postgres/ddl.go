/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suparena/mfgstore/registry"
)

// notifyFunctionDDL installs the shared trigger function that publishes row
// changes as JSON on the channel named in the trigger's first argument.
// pg_notify payloads are capped at 8000 bytes; rows larger than that are
// published as a delete-style key-only document so the feed degrades to a
// refetch hint instead of failing.
const notifyFunctionDDL = `
CREATE OR REPLACE FUNCTION mfg_notify_change() RETURNS trigger AS $$
DECLARE
    payload text;
BEGIN
    payload := json_build_object(
        'type', lower(CASE TG_OP WHEN 'INSERT' THEN 'insert'
                                 WHEN 'UPDATE' THEN 'update'
                                 ELSE 'delete' END),
        'new', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
        'old', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END
    )::text;
    IF octet_length(payload) > 7800 THEN
        payload := json_build_object(
            'type', lower(CASE TG_OP WHEN 'INSERT' THEN 'insert'
                                     WHEN 'UPDATE' THEN 'update'
                                     ELSE 'delete' END)
        )::text;
    END IF;
    PERFORM pg_notify(TG_ARGV[0], payload);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;
`

// InstallChangefeed installs the notify function and attaches a row-level
// trigger publishing the table's changes on its registered channel. Safe to
// run repeatedly.
func InstallChangefeed(ctx context.Context, pool *pgxpool.Pool, tm registry.TableMap) error {
	if err := validIdentifier(tm.Table); err != nil {
		return err
	}
	if err := validIdentifier(tm.Channel); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, notifyFunctionDDL); err != nil {
		return fmt.Errorf("failed to install notify function: %w", err)
	}

	triggerDDL := fmt.Sprintf(`
DROP TRIGGER IF EXISTS %s_changefeed ON %s;
CREATE TRIGGER %s_changefeed
    AFTER INSERT OR UPDATE OR DELETE ON %s
    FOR EACH ROW EXECUTE FUNCTION mfg_notify_change('%s');
`, tm.Table, tm.Table, tm.Table, tm.Table, tm.Channel)

	if _, err := pool.Exec(ctx, triggerDDL); err != nil {
		return fmt.Errorf("failed to install changefeed trigger on %s: %w", tm.Table, err)
	}
	return nil
}
