package manifest

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Record is one entry of a document store listing.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Parent     string    `json:"parent"`
	Type       string    `json:"type"`
	ModifiedAt time.Time `json:"modified_at"`
}

// IsDocument reports whether r is a document.
func (r Record) IsDocument() bool { return r.Type == TypeDocument }

// IsCollection reports whether r is a folder.
func (r Record) IsCollection() bool { return r.Type == TypeCollection }

// Meta returns the snapshot of r stored in a manifest.
func (r Record) Meta() DocumentMeta {
	return DocumentMeta{ID: r.ID, Name: r.Name, ModifiedAt: r.ModifiedAt.UTC()}
}

// Collection is an indexed, read-only set of records.
type Collection struct {
	records  []Record
	byID     map[uuid.UUID]int
	children map[string][]int
	// dups lists ids that appear on more than one record, in id order.
	dups []uuid.UUID
}

// NewCollection indexes records by id and by parent. Records are kept in id
// order so that every lookup is deterministic regardless of listing order.
func NewCollection(records []Record) *Collection {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int {
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	c := &Collection{
		records:  sorted,
		byID:     make(map[uuid.UUID]int, len(sorted)),
		children: make(map[string][]int),
	}
	for i, r := range sorted {
		if _, seen := c.byID[r.ID]; seen {
			if len(c.dups) == 0 || c.dups[len(c.dups)-1] != r.ID {
				c.dups = append(c.dups, r.ID)
			}
			continue
		}
		c.byID[r.ID] = i
		c.children[r.Parent] = append(c.children[r.Parent], i)
	}
	return c
}

// Duplicates returns the ids listed by more than one record.
func (c *Collection) Duplicates() []uuid.UUID { return slices.Clone(c.dups) }

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Records returns all records in id order.
func (c *Collection) Records() []Record { return slices.Clone(c.records) }

// Get returns the record with the given id.
func (c *Collection) Get(id uuid.UUID) (Record, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Children returns the records whose parent is parent, in id order.
// Pass [ParentRoot] for root-level records.
func (c *Collection) Children(parent string) []Record {
	idx := c.children[parent]
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = c.records[j]
	}
	return out
}
