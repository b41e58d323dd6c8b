/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/suparena/mfgstore/datastore/mock"
	"github.com/suparena/mfgstore/errors"
	"github.com/suparena/mfgstore/models"
	"github.com/suparena/mfgstore/storagemodels"
)

func strPtr(s string) *string    { return &s }
func intPtr(i int64) *int64      { return &i }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool       { return &b }

func testProduct(sku, name string) models.Product {
	return models.Product{
		SkuID:        strPtr(sku),
		Name:         strPtr(name),
		CurrentStock: intPtr(100),
		Price:        floatPtr(12.50),
		IsActive:     boolPtr(true),
	}
}

func productKey(p models.Product) string {
	if p.SkuID == nil {
		return ""
	}
	return *p.SkuID
}

func newProductMock(records ...models.Product) *mock.RemoteSource[models.Product] {
	m := mock.New[models.Product]().WithKeyFunc(productKey)
	m.SetRecords(records)
	return m
}

func newProductStore(t *testing.T, src *mock.RemoteSource[models.Product]) *Store[models.Product] {
	t.Helper()
	s, err := New[models.Product]("product", src)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("loads and orders the collection", func(t *testing.T) {
		src := newProductMock(
			testProduct("SKU0001", "Beam"),
			testProduct("SKU0002", "Plate"),
			testProduct("SKU0003", "Rod"),
		)
		s := newProductStore(t, src)

		if s.State() != StateUninitialized {
			t.Fatalf("expected uninitialized state, got %v", s.State())
		}
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if s.State() != StateReady {
			t.Errorf("expected ready state, got %v", s.State())
		}

		snap := s.Snapshot()
		if len(snap) != 3 {
			t.Fatalf("expected 3 records, got %d", len(snap))
		}
		if *snap[0].SkuID != "SKU0001" || *snap[2].SkuID != "SKU0003" {
			t.Errorf("fetch response order not preserved: %q, %q", *snap[0].SkuID, *snap[2].SkuID)
		}
	})

	t.Run("runs at most once", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		s := newProductStore(t, src)

		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("first fetch failed: %v", err)
		}
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("second fetch failed: %v", err)
		}
		if got := src.SelectCalls(); got != 1 {
			t.Errorf("expected exactly 1 read-all query, got %d", got)
		}
	})

	t.Run("guard holds under concurrency", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		s := newProductStore(t, src)

		done := make(chan struct{})
		for i := 0; i < 8; i++ {
			go func() {
				_ = s.Fetch(ctx)
				done <- struct{}{}
			}()
		}
		for i := 0; i < 8; i++ {
			<-done
		}
		if got := src.SelectCalls(); got != 1 {
			t.Errorf("expected exactly 1 read-all query, got %d", got)
		}
	})

	t.Run("guard holds after failure", func(t *testing.T) {
		src := newProductMock().WithSelectError(fmt.Errorf("connection refused"))
		s := newProductStore(t, src)

		err := s.Fetch(ctx)
		if err == nil {
			t.Fatal("expected fetch to fail")
		}
		if !errors.IsTransportError(err) {
			t.Errorf("expected transport error, got %v", err)
		}
		if s.State() != StateError {
			t.Errorf("expected error state, got %v", s.State())
		}

		// Another Fetch is still a no-op; retry is Refresh's job.
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("repeat fetch should be a no-op, got %v", err)
		}
		if got := src.SelectCalls(); got != 1 {
			t.Errorf("expected 1 read-all query after failed fetch, got %d", got)
		}
	})

	t.Run("rejects invalid response records", func(t *testing.T) {
		bad := testProduct("SKU0002", "Plate")
		bad.Price = nil
		src := newProductMock(testProduct("SKU0001", "Beam"), bad)
		s := newProductStore(t, src)

		err := s.Fetch(ctx)
		if err == nil {
			t.Fatal("expected fetch to reject the invalid record")
		}
		if !errors.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
		if s.Len() != 0 {
			t.Errorf("collection must stay empty after a rejected fetch, got %d records", s.Len())
		}
	})

	t.Run("rejects duplicate keys in response", func(t *testing.T) {
		src := newProductMock(
			testProduct("SKU0001", "Beam"),
			testProduct("SKU0001", "Beam again"),
		)
		s := newProductStore(t, src)

		if err := s.Fetch(ctx); err == nil {
			t.Fatal("expected fetch to reject duplicate keys")
		}
		if s.State() != StateError {
			t.Errorf("expected error state, got %v", s.State())
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("bypasses the fetch guard", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		s := newProductStore(t, src)

		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		src.SetRecords([]models.Product{
			testProduct("SKU0001", "Beam"),
			testProduct("SKU0002", "Plate"),
		})
		if err := s.Refresh(ctx); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if got := src.SelectCalls(); got != 2 {
			t.Errorf("expected 2 read-all queries, got %d", got)
		}
		if s.Len() != 2 {
			t.Errorf("expected 2 records after refresh, got %d", s.Len())
		}
	})

	t.Run("recovers a failed fetch", func(t *testing.T) {
		src := newProductMock().WithSelectError(fmt.Errorf("timeout"))
		s := newProductStore(t, src)

		if err := s.Fetch(ctx); err == nil {
			t.Fatal("expected fetch to fail")
		}

		src.WithSelectError(nil)
		src.SetRecords([]models.Product{testProduct("SKU0001", "Beam")})
		if err := s.Refresh(ctx); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if s.State() != StateReady {
			t.Errorf("expected ready state after refresh, got %v", s.State())
		}
		if s.Err() != nil {
			t.Errorf("expected error to clear after successful refresh, got %v", s.Err())
		}
	})

	t.Run("keeps old collection on failure", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		s := newProductStore(t, src)

		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		src.WithSelectError(fmt.Errorf("server gone"))
		if err := s.Refresh(ctx); err == nil {
			t.Fatal("expected refresh to fail")
		}
		if s.Len() != 1 {
			t.Errorf("failed refresh must keep the previous collection, got %d records", s.Len())
		}
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the canonical response record", func(t *testing.T) {
		src := newProductMock()
		src.WithInsertFunc(func(_ context.Context, rec models.Product) (*models.Product, error) {
			// The remote assigns stock and echoes the rest back.
			canonical := rec
			canonical.CurrentStock = intPtr(0)
			return &canonical, nil
		})
		s := newProductStore(t, src)
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		draft := testProduct("SKU0010", "Angle")
		draft.CurrentStock = intPtr(999)

		got, err := s.Add(ctx, draft)
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if *got.CurrentStock != 0 {
			t.Errorf("expected canonical stock 0, got %d", *got.CurrentStock)
		}
		stored, ok := s.Get("SKU0010")
		if !ok {
			t.Fatal("added record missing from collection")
		}
		if *stored.CurrentStock != 0 {
			t.Errorf("collection holds the draft, not the canonical record: stock %d", *stored.CurrentStock)
		}
	})

	t.Run("invalid draft never reaches the remote", func(t *testing.T) {
		src := newProductMock()
		s := newProductStore(t, src)

		draft := testProduct("not-a-sku", "Bad")
		_, err := s.Add(ctx, draft)
		if err == nil {
			t.Fatal("expected validation to reject the draft")
		}
		if !errors.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
		if got := src.InsertCalls(); got != 0 {
			t.Errorf("remote insert must not run for an invalid draft, got %d calls", got)
		}
		if s.Err() == nil {
			t.Error("expected the store to record the validation error")
		}
	})

	t.Run("transport failure leaves collection untouched", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		s := newProductStore(t, src)
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		src.WithInsertError(fmt.Errorf("500 internal"))
		_, err := s.Add(ctx, testProduct("SKU0002", "Plate"))
		if err == nil {
			t.Fatal("expected add to fail")
		}
		if !errors.IsTransportError(err) {
			t.Errorf("expected transport error, got %v", err)
		}
		if s.Len() != 1 {
			t.Errorf("failed add must not mutate the collection, got %d records", s.Len())
		}
	})

	t.Run("rejects an invalid canonical record", func(t *testing.T) {
		src := newProductMock()
		src.WithInsertFunc(func(_ context.Context, rec models.Product) (*models.Product, error) {
			canonical := rec
			canonical.Price = nil
			return &canonical, nil
		})
		s := newProductStore(t, src)

		_, err := s.Add(ctx, testProduct("SKU0010", "Angle"))
		if err == nil {
			t.Fatal("expected the canonical record to be rejected")
		}
		if _, ok := s.Get("SKU0010"); ok {
			t.Error("rejected canonical record must not enter the collection")
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the record with the canonical response", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		src.WithUpdateFunc(func(_ context.Context, key string, changes map[string]any) (*models.Product, error) {
			canonical := testProduct(key, "Beam")
			canonical.Price = floatPtr(changes["price"].(float64))
			return &canonical, nil
		})
		s := newProductStore(t, src)
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		got, err := s.Update(ctx, "SKU0001", map[string]any{"price": 19.99})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if *got.Price != 19.99 {
			t.Errorf("expected canonical price 19.99, got %v", *got.Price)
		}
		stored, _ := s.Get("SKU0001")
		if *stored.Price != 19.99 {
			t.Errorf("collection not updated, price %v", *stored.Price)
		}
		if s.Len() != 1 {
			t.Errorf("update must replace in place, got %d records", s.Len())
		}
	})

	t.Run("transport failure keeps the old record", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		s := newProductStore(t, src)
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		src.WithUpdateError(fmt.Errorf("conflict"))
		_, err := s.Update(ctx, "SKU0001", map[string]any{"name": "x"})
		if err == nil {
			t.Fatal("expected update to fail")
		}
		stored, _ := s.Get("SKU0001")
		if *stored.Name != "Beam" {
			t.Errorf("failed update must keep the old record, got name %q", *stored.Name)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes remotely and locally", func(t *testing.T) {
		src := newProductMock(
			testProduct("SKU0001", "Beam"),
			testProduct("SKU0002", "Plate"),
		)
		s := newProductStore(t, src)
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		if err := s.Delete(ctx, "SKU0001"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, ok := s.Get("SKU0001"); ok {
			t.Error("deleted record still present")
		}
		if _, ok := s.Get("SKU0002"); !ok {
			t.Error("unrelated record lost on delete")
		}
		if got := src.DeleteCalls(); got != 1 {
			t.Errorf("expected 1 remote delete, got %d", got)
		}
	})

	t.Run("remote failure keeps the record", func(t *testing.T) {
		src := newProductMock(testProduct("SKU0001", "Beam"))
		s := newProductStore(t, src)
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		src.WithDeleteError(fmt.Errorf("forbidden"))
		if err := s.Delete(ctx, "SKU0001"); err == nil {
			t.Fatal("expected delete to fail")
		}
		if _, ok := s.Get("SKU0001"); !ok {
			t.Error("failed delete must keep the record")
		}
	})
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, records ...models.Product) (*Store[models.Product], *mock.RemoteSource[models.Product]) {
		t.Helper()
		src := newProductMock(records...)
		s := newProductStore(t, src)
		if err := s.Fetch(ctx); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if err := s.Subscribe(ctx); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		t.Cleanup(s.Unsubscribe)
		return s, src
	}

	t.Run("merges insert events", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		rec := testProduct("SKU0002", "Plate")
		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeInsert,
			New:  &rec,
		})

		waitFor(t, func() bool { return s.Len() == 2 })
		got, ok := s.Get("SKU0002")
		if !ok || *got.Name != "Plate" {
			t.Errorf("insert event not merged: %+v", got)
		}
	})

	t.Run("merges update events by key", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		rec := testProduct("SKU0001", "Beam (revised)")
		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeUpdate,
			New:  &rec,
		})

		waitFor(t, func() bool {
			got, ok := s.Get("SKU0001")
			return ok && *got.Name == "Beam (revised)"
		})
		if s.Len() != 1 {
			t.Errorf("update event must replace, not append: %d records", s.Len())
		}
	})

	t.Run("update for unseen key inserts", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		rec := testProduct("SKU0009", "Channel")
		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeUpdate,
			New:  &rec,
		})

		waitFor(t, func() bool { return s.Len() == 2 })
	})

	t.Run("merges delete events", func(t *testing.T) {
		s, src := setup(t,
			testProduct("SKU0001", "Beam"),
			testProduct("SKU0002", "Plate"),
		)

		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeDelete,
			Key:  "SKU0001",
		})

		waitFor(t, func() bool { return s.Len() == 1 })
		if _, ok := s.Get("SKU0002"); !ok {
			t.Error("delete event removed the wrong record")
		}
	})

	t.Run("delete falls back to the old payload key", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		old := testProduct("SKU0001", "Beam")
		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeDelete,
			Old:  &old,
		})

		waitFor(t, func() bool { return s.Len() == 0 })
	})

	t.Run("invalid event records error without disturbing state", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		bad := testProduct("SKU0002", "Plate")
		bad.IsActive = nil
		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeInsert,
			New:  &bad,
		})

		waitFor(t, func() bool { return s.Err() != nil })
		if !errors.IsEventError(s.Err()) {
			t.Errorf("expected event error, got %v", s.Err())
		}
		if s.State() != StateReady {
			t.Errorf("bad event must not change state, got %v", s.State())
		}
		if s.Len() != 1 {
			t.Errorf("bad event must not touch the collection, got %d records", s.Len())
		}

		// The feed keeps flowing after a bad event.
		good := testProduct("SKU0003", "Rod")
		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeInsert,
			New:  &good,
		})
		waitFor(t, func() bool { return s.Len() == 2 })
	})

	t.Run("undecodable event carries the decode error", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		cause := stderrors.New("malformed payload")
		src.EmitChange(storagemodels.ChangeEvent[models.Product]{
			Type: storagemodels.ChangeInsert,
			Err:  cause,
		})

		waitFor(t, func() bool { return s.Err() != nil })
		if !stderrors.Is(s.Err(), cause) {
			t.Errorf("expected wrapped decode error, got %v", s.Err())
		}
	})

	t.Run("second subscribe is a no-op", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		if err := s.Subscribe(ctx); err != nil {
			t.Fatalf("repeat subscribe failed: %v", err)
		}
		if got := src.OpenFeeds(); got != 1 {
			t.Errorf("expected a single open feed, got %d", got)
		}
	})

	t.Run("unsubscribe closes the feed and is idempotent", func(t *testing.T) {
		s, src := setup(t, testProduct("SKU0001", "Beam"))

		s.Unsubscribe()
		waitFor(t, func() bool { return src.OpenFeeds() == 0 })
		if s.Subscribed() {
			t.Error("store still reports an open feed")
		}
		s.Unsubscribe()
	})

	t.Run("failure to open the feed is reported", func(t *testing.T) {
		src := newProductMock().WithChangesError(fmt.Errorf("stream unavailable"))
		s := newProductStore(t, src)

		err := s.Subscribe(ctx)
		if err == nil {
			t.Fatal("expected subscribe to fail")
		}
		if !errors.IsTransportError(err) {
			t.Errorf("expected transport error, got %v", err)
		}
		if s.Subscribed() {
			t.Error("failed subscribe must not leave the store subscribed")
		}
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	src := newProductMock(testProduct("SKU0001", "Beam"))
	s := newProductStore(t, src)

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	s.Reset()

	if s.State() != StateUninitialized {
		t.Errorf("expected uninitialized state after reset, got %v", s.State())
	}
	if s.Len() != 0 {
		t.Errorf("expected empty collection after reset, got %d records", s.Len())
	}
	if s.Subscribed() {
		t.Error("reset must close the change feed")
	}
	waitFor(t, func() bool { return src.OpenFeeds() == 0 })

	// The fetch guard is rearmed.
	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("fetch after reset failed: %v", err)
	}
	if got := src.SelectCalls(); got != 2 {
		t.Errorf("expected a second read-all query after reset, got %d", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 record after refetch, got %d", s.Len())
	}
}

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	src := newProductMock(testProduct("SKU0001", "Beam"))
	s := newProductStore(t, src)
	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	t.Run("name", func(t *testing.T) {
		if s.Name() != "product" {
			t.Errorf("unexpected store name %q", s.Name())
		}
	})

	t.Run("get misses return false", func(t *testing.T) {
		if _, ok := s.Get("SKU9999"); ok {
			t.Error("expected miss for unknown key")
		}
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		snap := s.Snapshot()
		snap[0].Name = strPtr("mutated")
		stored, _ := s.Get("SKU0001")
		if *stored.Name != "Beam" {
			t.Error("snapshot mutation leaked into the store")
		}
	})

	t.Run("clear err", func(t *testing.T) {
		src.WithDeleteError(fmt.Errorf("nope"))
		_ = s.Delete(ctx, "SKU0001")
		if s.Err() == nil {
			t.Fatal("expected recorded error")
		}
		s.ClearErr()
		if s.Err() != nil {
			t.Error("expected error to clear")
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		if _, err := New[models.Product]("", newProductMock()); err == nil {
			t.Error("expected constructor to reject empty name")
		}
	})

	t.Run("requires a source", func(t *testing.T) {
		if _, err := New[models.Product]("product", nil); err == nil {
			t.Error("expected constructor to reject nil source")
		}
	})

	t.Run("falls back to the registered key func", func(t *testing.T) {
		// models registers a key func for Product at init.
		s, err := New[models.Product]("product", newProductMock())
		if err != nil {
			t.Fatalf("expected registry key func to be found: %v", err)
		}
		if s.keyFunc == nil {
			t.Fatal("key func not resolved")
		}
		p := testProduct("SKU0001", "Beam")
		if got := s.keyFunc(p); got != "SKU0001" {
			t.Errorf("unexpected key %q", got)
		}
	})
}
