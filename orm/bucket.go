/*
Package orm provides an easy to use db wrapper.

Break state space into prefixed sections called Buckets. Each bucket
contains only one type of object and has a primary index. Sequences
provide auto-incremented 8-byte identifiers scoped to a bucket.
*/
package orm

import (
	"fmt"
	"regexp"

	"github.com/covault/covault"
	"github.com/covault/covault/errors"
)

// SeqID is a constant to use to get a default ID sequence.
const SeqID = "id"

var isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString

// Bucket is a generic holder that stores data as well as references to
// sequences. It is a prefixed subspace of the DB; proto defines the
// default Model, all elements of this bucket are of this type.
//
// This is a generic building block that should generally be embedded
// in a type-safe wrapper to ensure all data is the same type.
type Bucket struct {
	name   string
	prefix []byte
	proto  Cloneable
}

var _ Reader = Bucket{}

// NewBucket creates a bucket to store data.
func NewBucket(name string, proto Cloneable) Bucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("illegal bucket: %s", name))
	}

	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
		proto:  proto,
	}
}

// Name returns the name of this bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix.
//
// We copy into a new array rather than use append, as the prefix slice
// may have spare capacity and consecutive appends would overwrite each
// other's results.
func (b Bucket) DBKey(key []byte) []byte {
	l := len(b.prefix)
	out := make([]byte, l+len(key))
	copy(out, b.prefix)
	copy(out[l:], key)
	return out
}

// Get one element from the bucket, returns nil Object if not found.
func (b Bucket) Get(db covault.ReadOnlyKVStore, key []byte) (Object, error) {
	bz, err := db.Get(b.DBKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "bucket get")
	}
	if bz == nil {
		return nil, nil
	}

	obj := b.proto.Clone()
	if err := obj.Value().Unmarshal(bz); err != nil {
		return nil, errors.Wrapf(err, "parsing %T", obj.Value())
	}
	obj.SetKey(key)
	return obj, nil
}

// Save will write the object to the bucket, after validating it.
func (b Bucket) Save(db covault.KVStore, model Object) error {
	if err := model.Validate(); err != nil {
		return errors.Wrap(err, "invalid object")
	}

	bz, err := model.Value().Marshal()
	if err != nil {
		return err
	}
	return db.Set(b.DBKey(model.Key()), bz)
}

// Delete removes the object with the given key, if present. Deleting a
// missing key is a noop.
func (b Bucket) Delete(db covault.KVStore, key []byte) error {
	return db.Delete(b.DBKey(key))
}

// Sequence returns a named sequence scoped to this bucket.
func (b Bucket) Sequence(name string) Sequence {
	return NewSequence(b.name, name)
}
