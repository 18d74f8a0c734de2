package pricing

import (
	"context"
	"errors"
	"fmt"

	"HoldCrypt/internal/model"
	"HoldCrypt/internal/store"
)

const versionAttr = "version"

// Snapshot is the price snapshot table: one entry per coin symbol.
type Snapshot struct {
	store store.Store
}

// NewSnapshot creates a Snapshot backed by s.
func NewSnapshot(s store.Store) *Snapshot {
	return &Snapshot{store: s}
}

// All returns every decodable entry in one scan. Entries that cannot be
// decoded are left out of the snapshot and reported in broken, keyed by coin
// symbol, each with its *store.DecodeError. Only a failed scan returns err.
func (s *Snapshot) All(ctx context.Context) (snap model.PriceSnapshot, broken map[string]error, err error) {
	docs, err := s.store.Scan(ctx, store.Coins)
	if err != nil {
		return nil, nil, fmt.Errorf("scan prices: %w", err)
	}
	snap = make(model.PriceSnapshot, len(docs))
	for _, doc := range docs {
		entry, err := DecodeEntry(doc)
		if err != nil {
			if broken == nil {
				broken = make(map[string]error)
			}
			broken[doc.Key] = err
			continue
		}
		snap[entry.Symbol] = entry
	}
	return snap, broken, nil
}

// Put writes entry unless the stored entry carries a higher version.
func (s *Snapshot) Put(ctx context.Context, entry model.PriceSnapshotEntry) error {
	err := s.store.Put(ctx, store.Coins, entry.Symbol, entry, store.Condition{VersionAttr: versionAttr})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConditionFailed):
		return fmt.Errorf("%w: version %d", ErrStaleSnapshot, entry.Version)
	default:
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
}

// DecodeEntry converts a stored coins document into a PriceSnapshotEntry.
func DecodeEntry(doc store.Document) (model.PriceSnapshotEntry, error) {
	d := doc.Decoder()
	entry := model.PriceSnapshotEntry{
		Symbol:    d.NonEmptyString("symbol"),
		Name:      d.String("name"),
		Price:     d.Float("price"),
		Version:   d.OptionalInt(versionAttr),
		UpdatedAt: d.OptionalTime("updated_at"),
	}
	if err := d.Err(); err != nil {
		return model.PriceSnapshotEntry{}, err
	}
	if entry.Symbol != doc.Key {
		return model.PriceSnapshotEntry{}, &store.DecodeError{
			Table: doc.Table, Key: doc.Key, Field: "symbol",
			Reason: fmt.Sprintf("does not match key (%q)", entry.Symbol),
		}
	}
	if entry.Price <= 0 {
		return model.PriceSnapshotEntry{}, &store.DecodeError{
			Table: doc.Table, Key: doc.Key, Field: "price",
			Reason: fmt.Sprintf("must be positive, got %v", entry.Price),
		}
	}
	return entry, nil
}
