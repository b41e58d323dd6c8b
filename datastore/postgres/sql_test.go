/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/suparena/mfgstore/models"
	"github.com/suparena/mfgstore/registry"
	"github.com/suparena/mfgstore/storagemodels"
)

var productMap = registry.TableMap{
	Table:     "products",
	KeyColumn: "sku_id",
	Channel:   "mfg_products_changes",
	OrderBy:   "order_index, sku_id",
}

func TestBuildSelectSQL(t *testing.T) {
	t.Run("with ordering", func(t *testing.T) {
		sql, err := buildSelectSQL(productMap)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "SELECT to_jsonb(t.*) FROM products t ORDER BY order_index, sku_id"
		if sql != want {
			t.Errorf("got %q, want %q", sql, want)
		}
	})

	t.Run("without ordering", func(t *testing.T) {
		tm := productMap
		tm.OrderBy = ""
		sql, err := buildSelectSQL(tm)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(sql, "ORDER BY") {
			t.Errorf("unexpected ORDER BY clause: %q", sql)
		}
	})

	t.Run("rejects hostile table name", func(t *testing.T) {
		tm := productMap
		tm.Table = "products; DROP TABLE products"
		if _, err := buildSelectSQL(tm); err == nil {
			t.Error("expected invalid identifier to be rejected")
		}
	})

	t.Run("rejects hostile order column", func(t *testing.T) {
		tm := productMap
		tm.OrderBy = "sku_id; --"
		if _, err := buildSelectSQL(tm); err == nil {
			t.Error("expected invalid identifier to be rejected")
		}
	})
}

func TestBuildInsertSQL(t *testing.T) {
	sql, err := buildInsertSQL(productMap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "INSERT INTO products AS t SELECT * FROM jsonb_populate_record(NULL::products, $1) RETURNING to_jsonb(t.*)"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}

func TestBuildUpdateSQL(t *testing.T) {
	t.Run("deterministic set list", func(t *testing.T) {
		sql, args, err := buildUpdateSQL(productMap, "SKU0001", map[string]any{
			"price":         19.99,
			"name":          "Beam",
			"current_stock": int64(5),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "UPDATE products AS t SET current_stock = $1, name = $2, price = $3 WHERE sku_id = $4 RETURNING to_jsonb(t.*)"
		if sql != want {
			t.Errorf("got %q, want %q", sql, want)
		}
		if len(args) != 4 {
			t.Fatalf("expected 4 args, got %d", len(args))
		}
		if args[0] != int64(5) || args[1] != "Beam" || args[2] != 19.99 || args[3] != "SKU0001" {
			t.Errorf("args out of order: %v", args)
		}
	})

	t.Run("rejects empty changes", func(t *testing.T) {
		if _, _, err := buildUpdateSQL(productMap, "SKU0001", nil); err == nil {
			t.Error("expected empty changes to be rejected")
		}
	})

	t.Run("rejects hostile column name", func(t *testing.T) {
		_, _, err := buildUpdateSQL(productMap, "SKU0001", map[string]any{
			"price = 0 WHERE 1=1; --": 1,
		})
		if err == nil {
			t.Error("expected invalid identifier to be rejected")
		}
	})
}

func TestBuildDeleteSQL(t *testing.T) {
	sql, err := buildDeleteSQL(productMap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "DELETE FROM products WHERE sku_id = $1"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}

func TestDecodeNotification(t *testing.T) {
	d := &Datastore[models.Product]{tm: productMap}

	t.Run("insert", func(t *testing.T) {
		payload := `{"type":"insert","new":{"sku_id":"SKU0001","name":"Beam","current_stock":5,"price":9.5,"is_active":true}}`
		ev := d.decodeNotification([]byte(payload))
		if ev.Err != nil {
			t.Fatalf("unexpected decode error: %v", ev.Err)
		}
		if ev.Type != storagemodels.ChangeInsert {
			t.Errorf("unexpected type %q", ev.Type)
		}
		if ev.New == nil || *ev.New.SkuID != "SKU0001" {
			t.Errorf("row not decoded: %+v", ev.New)
		}
	})

	t.Run("update", func(t *testing.T) {
		payload := `{"type":"update","new":{"sku_id":"SKU0002","name":"Plate","current_stock":1,"price":2.5,"is_active":false}}`
		ev := d.decodeNotification([]byte(payload))
		if ev.Err != nil {
			t.Fatalf("unexpected decode error: %v", ev.Err)
		}
		if ev.Type != storagemodels.ChangeUpdate || ev.New == nil {
			t.Errorf("update not decoded: %+v", ev)
		}
	})

	t.Run("delete extracts the key", func(t *testing.T) {
		payload := `{"type":"delete","old":{"sku_id":"SKU0003","name":"Rod","current_stock":0,"price":1,"is_active":true}}`
		ev := d.decodeNotification([]byte(payload))
		if ev.Err != nil {
			t.Fatalf("unexpected decode error: %v", ev.Err)
		}
		if ev.Key != "SKU0003" {
			t.Errorf("expected key SKU0003, got %q", ev.Key)
		}
		if ev.Old == nil || *ev.Old.SkuID != "SKU0003" {
			t.Errorf("old row not decoded: %+v", ev.Old)
		}
	})

	t.Run("malformed payload yields an error event", func(t *testing.T) {
		ev := d.decodeNotification([]byte(`{not json`))
		if ev.Err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("unknown type yields an error event", func(t *testing.T) {
		ev := d.decodeNotification([]byte(`{"type":"truncate"}`))
		if ev.Err == nil {
			t.Error("expected unknown type to be flagged")
		}
	})

	t.Run("insert without a row yields an error event", func(t *testing.T) {
		ev := d.decodeNotification([]byte(`{"type":"insert"}`))
		if ev.Err == nil {
			t.Error("expected missing row to be flagged")
		}
	})
}

func TestKeyFromRow(t *testing.T) {
	d := &Datastore[models.Product]{tm: productMap}

	row, _ := json.Marshal(map[string]any{"sku_id": "SKU0042", "name": "x"})
	if got := d.keyFromRow(row); got != "SKU0042" {
		t.Errorf("expected SKU0042, got %q", got)
	}
	if got := d.keyFromRow([]byte(`{}`)); got != "" {
		t.Errorf("expected empty key, got %q", got)
	}
	if got := d.keyFromRow([]byte(`not json`)); got != "" {
		t.Errorf("expected empty key for bad row, got %q", got)
	}
}
