package lifecycle_test

import (
	"context"
	"encoding/json"
	"testing"

	"fetalscan/internal/store"
	"fetalscan/internal/testsupport"
)

func TestMigrateRewritesLegacyRecords(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRaw(t, st, store.KeyArchive, `[
		{"patient":{"name":"Flat","patientId":"F1"},"timestamp":"2023-01-01T00:00:00Z","aiImage":"data:image/png;base64,AAAA"},
		{"schemaVersion":2,"id":"kept","data":{"patient":{"name":"Canon"}}}
	]`)
	testsupport.SeedRaw(t, st, store.KeyFinal, `[
		{"id":"w1","reportData":{"patient":{"name":"Wrapped","patientId":"W1"}},"status":"Reviewed","patient":"Wrapped"}
	]`)
	h := newHarnessWithStore(t, st)

	result, err := h.ctrl.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if result.Archived.Records != 2 || result.Archived.Upgraded != 1 || result.Archived.AssignedIDs != 1 {
		t.Fatalf("archived counts = %+v", result.Archived)
	}
	if result.Final.Records != 1 || result.Final.Upgraded != 1 || result.Final.AssignedIDs != 0 {
		t.Fatalf("final counts = %+v", result.Final)
	}
	if !result.Changed() {
		t.Fatal("migration should report changes")
	}

	raw, _, err := st.Raw(ctx, store.KeyArchive)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	for _, item := range items {
		if item["schemaVersion"] != float64(2) || item["id"] == "" || item["id"] == nil {
			t.Fatalf("record not canonical: %v", item)
		}
	}
	if items[0]["image"] != "data:image/png;base64,AAAA" {
		t.Fatalf("image not carried over: %v", items[0]["image"])
	}

	again, err := h.ctrl.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if again.Changed() {
		t.Fatalf("second migration changed data: %+v", again)
	}
	if _, err := h.ctrl.PromoteToFinal(ctx, "F1", true); err != nil {
		t.Fatalf("fallback key after migration: %v", err)
	}
}

func TestMigrateKeepsLegacyFinalDate(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRaw(t, st, store.KeyFinal, `[
		{"id":"r1","reportData":{"patient":{"name":"Old","patientId":"O1"}},"status":"Completed","date":"2025-03-10"}
	]`)
	h := newHarnessWithStore(t, st)

	if _, err := h.ctrl.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	raw, _, err := st.Raw(ctx, store.KeyFinal)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("decode final: %v", err)
	}
	if len(items) != 1 || items[0]["date"] != "2025-03-10" || items[0]["schemaVersion"] != float64(2) {
		t.Fatalf("migrated final = %v", items)
	}

	stats, err := h.ctrl.Stats(ctx, testNow)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ThisMonth != 1 {
		t.Fatalf("ThisMonth = %d after migration, want 1", stats.ThisMonth)
	}
}
