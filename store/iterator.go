package store

import (
	"bytes"

	"github.com/google/btree"

	"github.com/covault/covault/errors"
)

// mergeIterators combines pending cache items with the state of the
// backing store. Cached entries shadow the parent on key collision and
// deletion markers hide parent entries entirely.
//
// The merge materializes the result. That trades memory for a much
// simpler implementation than streaming both sides; domains iterated
// by this codebase are small (bucket prefixes).
func mergeIterators(items []btree.Item, parent Iterator, reverse bool) (Iterator, error) {
	defer parent.Close()

	after := func(a, b []byte) bool {
		if reverse {
			return bytes.Compare(a, b) < 0
		}
		return bytes.Compare(a, b) > 0
	}

	var out []Model
	i := 0
	for parent.Valid() {
		pk, pv := parent.Key(), parent.Value()

		// flush cached items that sort before the parent key
		for i < len(items) && after(pk, items[i].(keyed).getKey()) {
			m, err := asModel(items[i])
			if err != nil {
				return nil, err
			}
			if m != nil {
				out = append(out, *m)
			}
			i++
		}

		if i < len(items) && bytes.Equal(pk, items[i].(keyed).getKey()) {
			// cache shadows the parent entry
			m, err := asModel(items[i])
			if err != nil {
				return nil, err
			}
			if m != nil {
				out = append(out, *m)
			}
			i++
		} else {
			out = append(out, Model{Key: pk, Value: pv})
		}
		parent.Next()
	}

	for ; i < len(items); i++ {
		m, err := asModel(items[i])
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, *m)
		}
	}

	return NewSliceIterator(out), nil
}

// asModel converts a btree item into a key/value pair. Deletion
// markers return nil, as they produce no output.
func asModel(item btree.Item) (*Model, error) {
	switch t := item.(type) {
	case setItem:
		return &Model{Key: t.key, Value: t.value}, nil
	case deletedItem:
		return nil, nil
	default:
		return nil, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", item)
	}
}
