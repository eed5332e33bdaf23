package store

import (
	"context"
	"encoding/json"
	"fmt"

	"fetalscan/internal/report"
)

// Repository exposes typed access to every stored collection.
type Repository interface {
	// LoadDraft returns the working draft. Sections missing from storage are
	// taken from base. ok is false when no draft is stored.
	LoadDraft(ctx context.Context, base report.ReportData) (rec report.Record, ok bool, err error)
	SaveDraft(ctx context.Context, rec report.Record) error
	ClearDraft(ctx context.Context) error

	ListArchived(ctx context.Context) ([]report.Record, error)
	AppendArchived(ctx context.Context, rec report.Record) error
	ReplaceArchived(ctx context.Context, records []report.Record) error

	ListFinal(ctx context.Context) ([]report.Record, error)
	AppendFinal(ctx context.Context, rec report.Record) error
	ReplaceFinal(ctx context.Context, records []report.Record) error

	LoadSettings(ctx context.Context, defaults Settings) (Settings, error)
	SaveSettings(ctx context.Context, settings Settings) error

	// SetEditRequest stages a record to seed the next draft load.
	SetEditRequest(ctx context.Context, rec report.Record) error
	// TakeEditRequest returns the staged record and deletes it.
	TakeEditRequest(ctx context.Context, base report.ReportData) (rec report.Record, ok bool, err error)

	Raw(ctx context.Context, key Key) ([]byte, bool, error)
	Atomically(ctx context.Context, fn func(Repository) error) error
}

var _ Repository = (*Store)(nil)

// LoadDraft returns the working draft with missing sections taken from base.
func (s *Store) LoadDraft(ctx context.Context, base report.ReportData) (report.Record, bool, error) {
	return s.loadRecord(ctx, KeyDraft, base)
}

// SaveDraft replaces the working draft.
func (s *Store) SaveDraft(ctx context.Context, rec report.Record) error {
	return s.saveRecord(ctx, KeyDraft, rec)
}

// ClearDraft deletes the working draft. Clearing an absent draft is not an error.
func (s *Store) ClearDraft(ctx context.Context) error {
	return s.remove(ctx, KeyDraft)
}

// ListArchived returns archived drafts in insertion order.
func (s *Store) ListArchived(ctx context.Context) ([]report.Record, error) {
	return s.loadList(ctx, KeyArchive)
}

// AppendArchived adds rec to the end of the archive.
func (s *Store) AppendArchived(ctx context.Context, rec report.Record) error {
	return s.appendList(ctx, KeyArchive, rec)
}

// ReplaceArchived overwrites the whole archive with records.
func (s *Store) ReplaceArchived(ctx context.Context, records []report.Record) error {
	return s.saveList(ctx, KeyArchive, records)
}

// ListFinal returns finalized reports in insertion order.
func (s *Store) ListFinal(ctx context.Context) ([]report.Record, error) {
	return s.loadList(ctx, KeyFinal)
}

// AppendFinal adds rec to the end of the finalized list.
func (s *Store) AppendFinal(ctx context.Context, rec report.Record) error {
	return s.appendList(ctx, KeyFinal, rec)
}

// ReplaceFinal overwrites the whole finalized list with records.
func (s *Store) ReplaceFinal(ctx context.Context, records []report.Record) error {
	return s.saveList(ctx, KeyFinal, records)
}

// LoadSettings overlays the stored document on defaults so keys added in later
// releases keep their default values.
func (s *Store) LoadSettings(ctx context.Context, defaults Settings) (Settings, error) {
	raw, ok, err := s.Raw(ctx, KeySettings)
	if err != nil || !ok {
		return defaults, err
	}
	settings := defaults
	if err := json.Unmarshal(raw, &settings); err != nil {
		return defaults, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings replaces the stored settings document.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.put(ctx, KeySettings, data)
}

// SetEditRequest stages rec to seed the next draft load.
func (s *Store) SetEditRequest(ctx context.Context, rec report.Record) error {
	return s.saveRecord(ctx, KeyEditRequest, rec)
}

// TakeEditRequest returns the staged record and deletes it in one transaction.
func (s *Store) TakeEditRequest(ctx context.Context, base report.ReportData) (report.Record, bool, error) {
	var (
		rec report.Record
		ok  bool
	)
	err := s.Atomically(ctx, func(repo Repository) error {
		tx := repo.(*Store)
		var err error
		rec, ok, err = tx.loadRecord(ctx, KeyEditRequest, base)
		if err != nil || !ok {
			return err
		}
		return tx.remove(ctx, KeyEditRequest)
	})
	return rec, ok, err
}

func (s *Store) loadRecord(ctx context.Context, key Key, base report.ReportData) (report.Record, bool, error) {
	raw, ok, err := s.Raw(ctx, key)
	if err != nil || !ok {
		return report.Record{}, false, err
	}
	rec, _, err := report.DecodeOnto(raw, base)
	if err != nil {
		return report.Record{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *Store) saveRecord(ctx context.Context, key Key, rec report.Record) error {
	data, err := report.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.put(ctx, key, data)
}

func (s *Store) loadList(ctx context.Context, key Key) ([]report.Record, error) {
	raw, ok, err := s.Raw(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	records, err := report.DecodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return records, nil
}

func (s *Store) saveList(ctx context.Context, key Key, records []report.Record) error {
	data, err := report.EncodeList(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.put(ctx, key, data)
}

func (s *Store) appendList(ctx context.Context, key Key, rec report.Record) error {
	return s.Atomically(ctx, func(repo Repository) error {
		tx := repo.(*Store)
		records, err := tx.loadList(ctx, key)
		if err != nil {
			return err
		}
		return tx.saveList(ctx, key, append(records, rec))
	})
}
