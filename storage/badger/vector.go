package badger

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
//
// Besides the entries themselves it maintains three indices: the tuple key
// enforcing uniqueness, the content index used by DeleteForContent, and a
// per-model record holding the established dimension and the number of
// entries relying on it.
type VectorRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	now     func() time.Time
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	idSeq, err := backend.GetSequence(vectorIDSeq)
	if err != nil {
		return nil, err
	}

	return &VectorRepository{
		backend: backend,
		idSeq:   idSeq,
		now:     time.Now,
	}, nil
}

// Close releases the ID sequence.
func (r *VectorRepository) Close() error {
	return r.idSeq.Release()
}

// InsertVector stores an entry, assigning its ID and CreatedAt.
func (r *VectorRepository) InsertVector(ctx context.Context, entry *core.VectorEntry) (*core.VectorEntry, error) {
	if err := core.ValidateVectorEntry(entry); err != nil {
		return nil, err
	}

	stored := r.prepare(entry)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := r.insertVectorEntry(tx, stored); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ReplaceForContent swaps the chunks of a content item stored for model with
// entries in a single transaction. Chunks of other models are kept. Every
// entry must belong to the same content item and model. On error the index
// is left as it was.
func (r *VectorRepository) ReplaceForContent(ctx context.Context, contentID core.ID, contentType, model string, entries []*core.VectorEntry) ([]*core.VectorEntry, error) {
	prepared := make([]*core.VectorEntry, len(entries))
	for i, entry := range entries {
		if err := core.ValidateVectorEntry(entry); err != nil {
			return nil, err
		}
		if entry.ContentID != contentID || entry.ContentType != contentType || entry.ModelName != model {
			return nil, fmt.Errorf("%w: entry %s does not belong to (%s,%s,%s)",
				core.ErrInvalidVectorEntry, entry.Tuple(), contentID, contentType, model)
		}
		prepared[i] = r.prepare(entry)
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range contentEntryIDs(tx, contentID, contentType) {
			old, err := readVectorEntry(tx, id)
			if err != nil {
				return err
			}
			if old.ModelName != model {
				continue
			}
			if err := deleteVectorEntry(tx, old); err != nil {
				return err
			}
		}
		for _, entry := range prepared {
			if err := r.insertVectorEntry(tx, entry); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

// prepare copies entry and stamps CreatedAt.
func (r *VectorRepository) prepare(entry *core.VectorEntry) *core.VectorEntry {
	stored := *entry
	stored.Vector = slices.Clone(entry.Vector)
	stored.CreatedAt = r.now().UTC().Truncate(time.Microsecond)
	return &stored
}

// insertVectorEntry writes stored and its index keys, assigning its ID.
// It enforces tuple uniqueness and the model's established dimension.
func (r *VectorRepository) insertVectorEntry(tx *badger.Txn, stored *core.VectorEntry) error {
	tupleKey := makeVectorTupleKey(stored)
	if _, err := tx.Get(tupleKey); err == nil {
		return fmt.Errorf("%w: vector %s", storage.ErrDuplicateKey, stored.Tuple())
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	md, err := readModelDimension(tx, stored.ModelName)
	if err != nil {
		return err
	}
	if md == nil {
		md = &core.ModelDimension{Model: stored.ModelName, Dimension: len(stored.Vector)}
	} else if md.Dimension != len(stored.Vector) {
		return fmt.Errorf("%w: model %s expects %d, got %d",
			core.ErrDimensionMismatch, stored.ModelName, md.Dimension, len(stored.Vector))
	}
	md.Entries++

	id, err := nextID(r.idSeq)
	if err != nil {
		return err
	}
	stored.Id = core.ID(id)

	writes := []struct{ key, val []byte }{
		{makeVectorKey(stored.Id), storage.MarshalVectorEntry(stored)},
		{tupleKey, storage.MarshalID(stored.Id)},
		{makeVectorContentKey(stored.ContentID, stored.ContentType, stored.Id), storage.MarshalID(stored.Id)},
		{makeModelKey(stored.ModelName), storage.MarshalModelDimension(md)},
	}
	for _, w := range writes {
		if err := tx.Set(w.key, w.val); err != nil {
			return err
		}
	}
	return nil
}

// GetVector retrieves an entry by ID.
func (r *VectorRepository) GetVector(ctx context.Context, id core.ID) (*core.VectorEntry, error) {
	var result *core.VectorEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readVectorEntry(tx, id)
		return err
	}, false)
	return result, err
}

// DeleteVector removes an entry by ID.
func (r *VectorRepository) DeleteVector(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := readVectorEntry(tx, id)
		if err != nil {
			return err
		}
		if err := deleteVectorEntry(tx, entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListForContent returns every chunk of a content item across all models,
// ordered by ID ascending.
func (r *VectorRepository) ListForContent(ctx context.Context, contentID core.ID, contentType string) ([]*core.VectorEntry, error) {
	var results []*core.VectorEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range contentEntryIDs(tx, contentID, contentType) {
			entry, err := readVectorEntry(tx, id)
			if err != nil {
				return err
			}
			results = append(results, entry)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteForContent removes every chunk of a content item across all models.
func (r *VectorRepository) DeleteForContent(ctx context.Context, contentID core.ID, contentType string) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids := contentEntryIDs(tx, contentID, contentType)
		for _, id := range ids {
			entry, err := readVectorEntry(tx, id)
			if err != nil {
				return err
			}
			if err := deleteVectorEntry(tx, entry); err != nil {
				return err
			}
		}
		count = len(ids)
		if count == 0 {
			return nil
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// contentEntryIDs reads the content index. Keys sort by entry ID, so the
// result is ascending.
func contentEntryIDs(tx *badger.Txn, contentID core.ID, contentType string) []core.ID {
	prefix := makePartialVectorContentKey(contentID, contentType)

	var ids []core.ID
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		ids = append(ids, core.ID(binary.BigEndian.Uint64(key[len(prefix):])))
	}
	return ids
}

// ClearVectors removes every entry along with all indices and model dimensions.
// The count is read before the prefixes are dropped, so an entry inserted
// concurrently may be removed without being counted. Callers that need an
// exact count must stop writers first (see scour.Database.ClearVectors).
func (r *VectorRepository) ClearVectors(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, []byte(vectorPrefix))
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	err = r.backend.DropPrefix(
		[]byte(vectorPrefix),
		[]byte(vectorTuplePrefix),
		[]byte(vectorContentPrefix),
		[]byte(vectorModelPrefix),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear vectors: %w", err)
	}
	return count, nil
}

// ListVectors returns all entries ordered by ID ascending.
func (r *VectorRepository) ListVectors(ctx context.Context) ([]*core.VectorEntry, error) {
	var results []*core.VectorEntry
	err := r.scan(func(entry *core.VectorEntry) error {
		results = append(results, entry)
		return nil
	})
	return results, err
}

// VectorStats recomputes aggregates over the index.
func (r *VectorRepository) VectorStats(ctx context.Context) (*core.VectorStats, error) {
	stats := &core.VectorStats{Dimensions: map[string]int{}}
	var dimensionSum int

	err := r.scan(func(entry *core.VectorEntry) error {
		stats.TotalVectors++
		dimensionSum += len(entry.Vector)
		if entry.CreatedAt.After(stats.LastUpdated) {
			stats.LastUpdated = entry.CreatedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		return iteratePrefix(tx, []byte(vectorModelPrefix), func(_, val []byte) error {
			md, err := storage.UnmarshalModelDimension(val)
			if err != nil {
				return err
			}
			stats.Dimensions[md.Model] = md.Dimension
			stats.ModelsUsed = append(stats.ModelsUsed, md.Model)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.Sort(stats.ModelsUsed)
	if stats.TotalVectors > 0 {
		stats.AverageDimension = float64(dimensionSum) / float64(stats.TotalVectors)
	}
	return stats, nil
}

// FindSimilar scores entries of model against vector by cosine similarity.
func (r *VectorRepository) FindSimilar(ctx context.Context, model string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error) {
	if limit <= 0 || len(vector) == 0 {
		return []*core.SimilarityMatch{}, nil
	}

	results := []*core.SimilarityMatch{}
	err := r.scan(func(entry *core.VectorEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.ModelName != model || len(entry.Vector) != len(vector) {
			return nil
		}
		score := core.CosineSimilarity(vector, entry.Vector)
		if score >= minSimilarity {
			results = append(results, &core.SimilarityMatch{Entry: entry, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SimilarityMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := a.Entry.CreatedAt.Compare(b.Entry.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Entry.Id, b.Entry.Id)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scan visits every entry in ID order within a single read transaction.
func (r *VectorRepository) scan(fn func(*core.VectorEntry) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return iteratePrefix(tx, []byte(vectorPrefix), func(_, val []byte) error {
			entry, err := storage.UnmarshalVectorEntry(val)
			if err != nil {
				return err
			}
			return fn(entry)
		})
	}, false)
}

// deleteVectorEntry removes an entry and its index keys, releasing the
// model dimension when the last entry of the model goes away.
func deleteVectorEntry(tx *badger.Txn, entry *core.VectorEntry) error {
	keys := [][]byte{
		makeVectorKey(entry.Id),
		makeVectorTupleKey(entry),
		makeVectorContentKey(entry.ContentID, entry.ContentType, entry.Id),
	}
	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}

	md, err := readModelDimension(tx, entry.ModelName)
	if err != nil || md == nil {
		return err
	}
	md.Entries--
	if md.Entries <= 0 {
		return tx.Delete(makeModelKey(entry.ModelName))
	}
	return tx.Set(makeModelKey(entry.ModelName), storage.MarshalModelDimension(md))
}

func readVectorEntry(tx *badger.Txn, id core.ID) (*core.VectorEntry, error) {
	item, err := tx.Get(makeVectorKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var entry *core.VectorEntry
	err = item.Value(func(val []byte) error {
		entry, err = storage.UnmarshalVectorEntry(val)
		return err
	})
	return entry, err
}

// readModelDimension returns nil without error when no dimension is established.
func readModelDimension(tx *badger.Txn, model string) (*core.ModelDimension, error) {
	item, err := tx.Get(makeModelKey(model))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var md *core.ModelDimension
	err = item.Value(func(val []byte) error {
		md, err = storage.UnmarshalModelDimension(val)
		return err
	})
	return md, err
}
