package orm

import (
	"github.com/covault/covault"
)

// Object is what is stored in a bucket. Key is joined with the bucket
// prefix to form the full database key, Value is the data stored.
//
// This can be a light wrapper around a protobuf-defined type.
type Object interface {
	Keyed
	Cloneable
	// Validate returns an error if the object is not in a valid
	// state to save to the db (eg. field missing, out of range, ...)
	covault.Validater

	Value() covault.Persistent
}

// Keyed is anything that can identify itself.
type Keyed interface {
	Key() []byte
	SetKey([]byte)
}

// Cloneable will create a new object that can be loaded into.
type Cloneable interface {
	Clone() Object
}

// CloneableData is an intelligent Value that can be embedded in a
// simple object to handle much of the details.
type CloneableData interface {
	covault.Validater
	covault.Persistent
	Copy() CloneableData
}

// Model is implemented by any entity persisted by a bucket. This is
// the same interface as CloneableData; using the right type name
// provides an easier to read API.
type Model = CloneableData

// Reader defines an interface that allows reading objects from the db.
type Reader interface {
	Get(db covault.ReadOnlyKVStore, key []byte) (Object, error)
}
