/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"testing"

	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/suparena/mfgstore/models"
	"github.com/suparena/mfgstore/registry"
	"github.com/suparena/mfgstore/storagemodels"
)

func testDatastore(t *testing.T) *Datastore[models.Product] {
	t.Helper()
	tm, ok := registry.GetTableMap[models.Product]()
	if !ok {
		t.Fatal("no table map registered for Product")
	}
	keyFunc, err := registry.GetKeyFunc[models.Product]()
	if err != nil {
		t.Fatalf("no key func registered for Product: %v", err)
	}
	return &Datastore[models.Product]{table: tm.Table, tm: tm, keyFunc: keyFunc}
}

func productImage(sku, name string) map[string]streamtypes.AttributeValue {
	return map[string]streamtypes.AttributeValue{
		"sku_id":        &streamtypes.AttributeValueMemberS{Value: sku},
		"name":          &streamtypes.AttributeValueMemberS{Value: name},
		"current_stock": &streamtypes.AttributeValueMemberN{Value: "5"},
		"price":         &streamtypes.AttributeValueMemberN{Value: "9.5"},
		"is_active":     &streamtypes.AttributeValueMemberBOOL{Value: true},
	}
}

func TestDecodeRecord(t *testing.T) {
	d := testDatastore(t)

	t.Run("insert", func(t *testing.T) {
		ev := d.decodeRecord(streamtypes.Record{
			EventName: streamtypes.OperationTypeInsert,
			Dynamodb: &streamtypes.StreamRecord{
				NewImage: productImage("SKU0001", "Beam"),
			},
		})
		if ev.Err != nil {
			t.Fatalf("unexpected decode error: %v", ev.Err)
		}
		if ev.Type != storagemodels.ChangeInsert {
			t.Errorf("unexpected type %q", ev.Type)
		}
		if ev.New == nil || *ev.New.SkuID != "SKU0001" || *ev.New.CurrentStock != 5 {
			t.Errorf("image not decoded: %+v", ev.New)
		}
	})

	t.Run("modify", func(t *testing.T) {
		ev := d.decodeRecord(streamtypes.Record{
			EventName: streamtypes.OperationTypeModify,
			Dynamodb: &streamtypes.StreamRecord{
				NewImage: productImage("SKU0002", "Plate"),
			},
		})
		if ev.Err != nil {
			t.Fatalf("unexpected decode error: %v", ev.Err)
		}
		if ev.Type != storagemodels.ChangeUpdate || ev.New == nil {
			t.Errorf("modify not decoded: %+v", ev)
		}
	})

	t.Run("remove with old image", func(t *testing.T) {
		ev := d.decodeRecord(streamtypes.Record{
			EventName: streamtypes.OperationTypeRemove,
			Dynamodb: &streamtypes.StreamRecord{
				OldImage: productImage("SKU0003", "Rod"),
			},
		})
		if ev.Err != nil {
			t.Fatalf("unexpected decode error: %v", ev.Err)
		}
		if ev.Key != "SKU0003" {
			t.Errorf("expected key SKU0003, got %q", ev.Key)
		}
		if ev.Old == nil || *ev.Old.SkuID != "SKU0003" {
			t.Errorf("old image not decoded: %+v", ev.Old)
		}
	})

	t.Run("remove falls back to key attributes", func(t *testing.T) {
		ev := d.decodeRecord(streamtypes.Record{
			EventName: streamtypes.OperationTypeRemove,
			Dynamodb: &streamtypes.StreamRecord{
				Keys: map[string]streamtypes.AttributeValue{
					"PK": &streamtypes.AttributeValueMemberS{Value: "PRODUCT#SKU0004"},
					"SK": &streamtypes.AttributeValueMemberS{Value: "PRODUCT#SKU0004"},
				},
			},
		})
		if ev.Err != nil {
			t.Fatalf("unexpected decode error: %v", ev.Err)
		}
		if ev.Key != "SKU0004" {
			t.Errorf("expected key SKU0004, got %q", ev.Key)
		}
	})

	t.Run("insert without image is an error event", func(t *testing.T) {
		ev := d.decodeRecord(streamtypes.Record{
			EventName: streamtypes.OperationTypeInsert,
			Dynamodb:  &streamtypes.StreamRecord{},
		})
		if ev.Err == nil {
			t.Error("expected missing image to be flagged")
		}
	})

	t.Run("remove without key is an error event", func(t *testing.T) {
		ev := d.decodeRecord(streamtypes.Record{
			EventName: streamtypes.OperationTypeRemove,
			Dynamodb:  &streamtypes.StreamRecord{},
		})
		if ev.Err == nil {
			t.Error("expected unidentifiable remove to be flagged")
		}
	})

	t.Run("missing payload is an error event", func(t *testing.T) {
		ev := d.decodeRecord(streamtypes.Record{
			EventName: streamtypes.OperationTypeInsert,
		})
		if ev.Err == nil {
			t.Error("expected missing payload to be flagged")
		}
	})
}

func TestConvertAttribute(t *testing.T) {
	t.Run("nested list and map", func(t *testing.T) {
		av := &streamtypes.AttributeValueMemberM{Value: map[string]streamtypes.AttributeValue{
			"tags": &streamtypes.AttributeValueMemberL{Value: []streamtypes.AttributeValue{
				&streamtypes.AttributeValueMemberS{Value: "a"},
				&streamtypes.AttributeValueMemberN{Value: "1"},
			}},
			"flag": &streamtypes.AttributeValueMemberBOOL{Value: true},
			"none": &streamtypes.AttributeValueMemberNULL{Value: true},
		}}

		conv, err := convertAttribute(av)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conv == nil {
			t.Fatal("nil conversion")
		}
	})

	t.Run("string sets", func(t *testing.T) {
		conv, err := convertAttribute(&streamtypes.AttributeValueMemberSS{Value: []string{"x", "y"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conv == nil {
			t.Fatal("nil conversion")
		}
	})
}

func TestKeyFromStreamKeys(t *testing.T) {
	t.Run("strips entity prefix", func(t *testing.T) {
		got := keyFromStreamKeys(map[string]streamtypes.AttributeValue{
			"PK": &streamtypes.AttributeValueMemberS{Value: "MATERIAL#RM0007"},
		})
		if got != "RM0007" {
			t.Errorf("expected RM0007, got %q", got)
		}
	})

	t.Run("plain key passes through", func(t *testing.T) {
		got := keyFromStreamKeys(map[string]streamtypes.AttributeValue{
			"PK": &streamtypes.AttributeValueMemberS{Value: "SKU0001"},
		})
		if got != "SKU0001" {
			t.Errorf("expected SKU0001, got %q", got)
		}
	})

	t.Run("missing PK", func(t *testing.T) {
		if got := keyFromStreamKeys(nil); got != "" {
			t.Errorf("expected empty key, got %q", got)
		}
	})
}
