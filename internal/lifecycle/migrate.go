package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"fetalscan/internal/logging"
	"fetalscan/internal/report"
	"fetalscan/internal/store"
)

// CollectionMigration counts what Migrate did to one stored key.
type CollectionMigration struct {
	Records     int `json:"records"`
	Upgraded    int `json:"upgraded"`
	AssignedIDs int `json:"assignedIds"`
}

// Migration reports Migrate's work per stored key.
type Migration struct {
	Draft       CollectionMigration `json:"draft"`
	Archived    CollectionMigration `json:"archived"`
	Final       CollectionMigration `json:"final"`
	EditRequest CollectionMigration `json:"editRequest"`
}

// Changed reports whether anything was rewritten.
func (m Migration) Changed() bool {
	for _, part := range []CollectionMigration{m.Draft, m.Archived, m.Final, m.EditRequest} {
		if part.Upgraded > 0 || part.AssignedIDs > 0 {
			return true
		}
	}
	return false
}

// Migrate rewrites every stored record in the current schema and gives
// archived and final records lacking an id a fresh one. Lookups still accept
// timestamps and patient ids afterwards.
func (c *Controller) Migrate(ctx context.Context) (Migration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result Migration
	err := c.repo.Atomically(ctx, func(repo store.Repository) error {
		var err error
		if result.Archived, err = c.migrateList(ctx, repo, store.KeyArchive, repo.ReplaceArchived); err != nil {
			return err
		}
		if result.Final, err = c.migrateList(ctx, repo, store.KeyFinal, repo.ReplaceFinal); err != nil {
			return err
		}
		if result.Draft, err = c.migrateSingle(ctx, repo, store.KeyDraft, repo.SaveDraft); err != nil {
			return err
		}
		result.EditRequest, err = c.migrateSingle(ctx, repo, store.KeyEditRequest, repo.SetEditRequest)
		return err
	})
	if err != nil {
		return Migration{}, fmt.Errorf("migrate store: %w", err)
	}
	c.logger.Info("store migrated",
		logging.Int("archived_upgraded", result.Archived.Upgraded),
		logging.Int("final_upgraded", result.Final.Upgraded),
		logging.Int("ids_assigned", result.Archived.AssignedIDs+result.Final.AssignedIDs),
	)
	return result, nil
}

func (c *Controller) migrateList(ctx context.Context, repo store.Repository, key store.Key, save func(context.Context, []report.Record) error) (CollectionMigration, error) {
	var counts CollectionMigration
	raw, ok, err := repo.Raw(ctx, key)
	if err != nil || !ok {
		return counts, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return counts, fmt.Errorf("decode %s: %w", key, err)
	}
	records := make([]report.Record, 0, len(items))
	for idx, item := range items {
		rec, shape, err := report.Decode(item)
		if err != nil {
			return counts, fmt.Errorf("decode %s[%d]: %w", key, idx, err)
		}
		if shape != report.ShapeCanonical {
			counts.Upgraded++
		}
		if rec.ID == "" {
			rec.ID = c.newID()
			counts.AssignedIDs++
		}
		records = append(records, rec)
	}
	counts.Records = len(records)
	if counts.Upgraded == 0 && counts.AssignedIDs == 0 {
		return counts, nil
	}
	return counts, save(ctx, records)
}

func (c *Controller) migrateSingle(ctx context.Context, repo store.Repository, key store.Key, save func(context.Context, report.Record) error) (CollectionMigration, error) {
	var counts CollectionMigration
	raw, ok, err := repo.Raw(ctx, key)
	if err != nil || !ok {
		return counts, err
	}
	rec, shape, err := report.DecodeOnto(raw, c.freshDraft().Data)
	if err != nil {
		return counts, fmt.Errorf("decode %s: %w", key, err)
	}
	counts.Records = 1
	if shape == report.ShapeCanonical {
		return counts, nil
	}
	counts.Upgraded = 1
	return counts, save(ctx, rec)
}
