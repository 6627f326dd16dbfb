package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/catalog"
	"countdown/internal/model"
)

func entries(pairs ...string) []catalog.Entry {
	out := make([]catalog.Entry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, catalog.Entry{ID: pairs[i], Category: model.Category(pairs[i+1])})
	}
	return out
}

func TestReconcile_DropsStaleAppendsNew(t *testing.T) {
	stored := &Record{Order: []string{"a", "b", "c"}, Visibility: map[string]bool{"b": false, "c": false}}
	got := Reconcile(stored, entries("a", "DEFAULT", "c", "DEFAULT", "d", "DEFAULT"), DefaultPolicy())

	assert.Equal(t, []string{"a", "c", "d"}, got.Order)
	assert.Equal(t, map[string]bool{"c": false}, got.Visibility)
}

func TestReconcile_PreservesUserOrder(t *testing.T) {
	stored := &Record{Order: []string{"z", "x", "gone", "y"}}
	got := Reconcile(stored, entries("x", "DEFAULT", "y", "DEFAULT", "z", "DEFAULT", "new", "US"), DefaultPolicy())
	assert.Equal(t, []string{"z", "x", "y", "new"}, got.Order)
	assert.True(t, got.Visible("new"), "an existing record does not reapply default hiding")
}

func TestReconcile_FreshRecordUsesPolicy(t *testing.T) {
	got := Reconcile(nil, entries("new-year", "DEFAULT", "JP-x", "JP", "US-y", "US", "GB-z", "GB"), DefaultPolicy())
	assert.Equal(t, []string{"new-year", "JP-x", "US-y", "GB-z"}, got.Order)
	assert.Equal(t, map[string]bool{"US-y": false, "GB-z": false}, got.Visibility)
}

func TestReconcile_Idempotent(t *testing.T) {
	cat := entries("a", "DEFAULT", "b", "US", "c", "JP")
	stored := &Record{Order: []string{"c", "x", "a", "a"}, Visibility: map[string]bool{"x": false, "a": false}}

	once := Reconcile(stored, cat, DefaultPolicy())
	twice := Reconcile(&once, cat, DefaultPolicy())
	assert.True(t, once.Equal(twice))
	assert.Equal(t, []string{"c", "a", "b"}, once.Order)
}

func TestUnmarshal(t *testing.T) {
	rec, err := Unmarshal(`{"order":["a"],"visibility":{"a":false}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rec.Order)
	assert.False(t, rec.Visible("a"))

	rec, err = Unmarshal(`{}`)
	require.NoError(t, err)
	assert.NotNil(t, rec.Visibility)

	for _, bad := range []string{"", "null", "{", `{"order":"a"}`} {
		_, err := Unmarshal(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestManager_AttachPersistsOnlyOnChange(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, "", DefaultPolicy())
	cat := entries("new-year", "DEFAULT", "US-x", "US")

	snap := m.Attach(cat)
	assert.Equal(t, []string{"new-year"}, snap.VisibleIDs())
	assert.Equal(t, 1, store.Saves())

	raw, ok, _ := store.Load(StorageKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"order":["new-year","US-x"],"visibility":{"US-x":false}}`, raw)

	// Same catalog on the next run: nothing to write.
	m2 := NewManager(store, "", DefaultPolicy())
	m2.Attach(cat)
	assert.Equal(t, 1, store.Saves())
}

func TestManager_CorruptRecordFallsBack(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(StorageKey, "{not json"))

	m := NewManager(store, "", DefaultPolicy())
	snap := m.Attach(entries("a", "DEFAULT", "b", "GB"))
	assert.Equal(t, []string{"a", "b"}, snap.Order())
	assert.Equal(t, []string{"a"}, snap.VisibleIDs())

	raw, _, _ := store.Load(StorageKey)
	_, err := Unmarshal(raw)
	assert.NoError(t, err, "defaults were written back")
}

type failingStore struct{}

func (failingStore) Load(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingStore) Save(string, string) error         { return errors.New("disk gone") }

func TestManager_StorageFailureIsNotFatal(t *testing.T) {
	m := NewManager(failingStore{}, "", DefaultPolicy())
	snap := m.Attach(entries("a", "DEFAULT"))
	assert.Equal(t, []string{"a"}, snap.VisibleIDs())

	snap, err := m.ToggleVisibility("a")
	require.NoError(t, err)
	assert.Empty(t, snap.VisibleIDs())
}

func TestManager_Mutations(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, "k_v2", DefaultPolicy())

	_, err := m.Reorder(0, 1)
	assert.ErrorIs(t, err, ErrNotAttached)

	m.Attach(entries("a", "DEFAULT", "b", "DEFAULT", "c", "JP", "d", "US", "e", "US"))

	snap, err := m.Reorder(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a", "d", "e"}, snap.Order())

	_, err = m.Reorder(0, 9)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	snap, err = m.Move("a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, snap.Order())

	_, err = m.Move("zzz", "b")
	assert.ErrorIs(t, err, ErrUnknownID)

	snap, err = m.ToggleVisibility("b")
	require.NoError(t, err)
	assert.False(t, snap.Visible("b"))
	snap, err = m.ToggleVisibility("b")
	require.NoError(t, err)
	assert.True(t, snap.Visible("b"))

	assert.False(t, m.CategoryShown("US"))
	snap, err = m.ToggleCategory("US", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, snap.VisibleIDs())
	assert.True(t, m.CategoryShown("US"))

	snap, err = m.ToggleCategory(model.CategoryDefault, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "e"}, snap.VisibleIDs())

	snap, err = m.SetOrder([]string{"e", "d", "c", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c"}, snap.VisibleIDs())

	_, err = m.SetOrder([]string{"e", "e", "c", "b", "a"})
	assert.ErrorIs(t, err, ErrUnknownID)

	snap, err = m.Reset()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, snap.Order())
	assert.Equal(t, []string{"a", "b", "c"}, snap.VisibleIDs())

	// Every mutation was written through.
	raw, ok, _ := store.Load("k_v2")
	require.True(t, ok)
	rec, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.True(t, rec.Equal(m.Snapshot().Record()))
}

func TestManager_SnapshotIsImmutable(t *testing.T) {
	m := NewManager(NewMemoryStore(), "", DefaultPolicy())
	before := m.Attach(entries("a", "DEFAULT", "b", "DEFAULT"))

	order := before.Order()
	order[0] = "mutated"

	_, err := m.Reorder(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, before.Order())
	assert.Equal(t, []string{"b", "a"}, m.Snapshot().Order())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s := NewFileStore(dir)

	_, ok, err := s.Load(StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(StorageKey, `{"order":[]}`))
	v, ok, err := s.Load(StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"order":[]}`, v)

	info, err := os.Stat(filepath.Join(dir, StorageKey+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Error(t, s.Save("../escape", "x"))
}
