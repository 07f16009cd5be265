/*
Package covault defines the common interfaces that tie the covault
packages together: the identity type used to authorize operations,
the key-value storage contracts implemented by the store package and
the serialization interfaces implemented by persisted models.

The authorization ledger itself lives in x/vault. This package stays
free of business logic so that the storage and error packages can be
used without importing the ledger.
*/
package covault
