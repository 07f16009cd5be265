package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreGetSetDelete(t *testing.T) {
	db := MemStore()

	v, err := db.Get([]byte("hello"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.Set([]byte("hello"), []byte("world")))
	v, err = db.Get([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), v)

	has, err := db.Has([]byte("hello"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, db.Delete([]byte("hello")))
	has, err = db.Has([]byte("hello"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCacheWrapWriteAndDiscard(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("a"), []byte("1")))

	// discarded writes never reach the base
	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("b"), []byte("2")))
	v, err := cache.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
	cache.Discard()
	has, err := base.Has([]byte("b"))
	require.NoError(t, err)
	assert.False(t, has)

	// written caches do
	cache = base.CacheWrap()
	require.NoError(t, cache.Set([]byte("b"), []byte("2")))
	require.NoError(t, cache.Delete([]byte("a")))
	require.NoError(t, cache.Write())

	v, err = base.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
	has, err = base.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCacheWrapShadowsBaseInGet(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("k"), []byte("old")))

	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("k"), []byte("new")))
	v, err := cache.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	require.NoError(t, cache.Delete([]byte("k")))
	v, err = cache.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, v)

	// base is untouched until Write
	v, err = base.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), v)
}

func TestIteratorMergesCacheAndBase(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("a"), []byte("1")))
	require.NoError(t, base.Set([]byte("c"), []byte("3")))

	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("b"), []byte("2")))
	require.NoError(t, cache.Delete([]byte("c")))

	it, err := cache.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestReverseIterator(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("a"), []byte("1")))

	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("b"), []byte("2")))
	require.NoError(t, cache.Set([]byte("d"), []byte("4")))

	it, err := cache.ReverseIterator([]byte("a"), []byte("d"))
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"b", "a"}, keys)
}
