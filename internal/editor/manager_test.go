package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/catalog"
	"lumina/internal/domain"
)

func TestManagerScopesSessionsToOwner(t *testing.T) {
	m := newManager(t, readyPoller(t), 0)
	s, err := m.Create("user-1")
	require.NoError(t, err)

	got, err := m.Get(s.ID(), "user-1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get(s.ID(), "user-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, m.Delete(s.ID(), "user-2"), domain.ErrNotFound)

	require.NoError(t, m.Delete(s.ID(), "user-1"))
	_, err = m.Get(s.ID(), "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, m.Len())

	_, err = m.Create("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestManagerPrune(t *testing.T) {
	now := time.Unix(1_000, 0)
	m, err := NewManager(Config{
		Catalog: catalog.Static(catalog.Default()),
		Poller:  readyPoller(t),
		Now:     func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	old, err := m.Create("user-1")
	require.NoError(t, err)
	now = now.Add(time.Hour)
	fresh, err := m.Create("user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, m.Prune(30*time.Minute))
	_, err = m.Get(old.ID(), "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = m.Get(fresh.ID(), "user-1")
	assert.NoError(t, err)
}

func TestManagerClose(t *testing.T) {
	p := newBlockingPoller()
	m, err := NewManager(Config{Catalog: catalog.Static(catalog.Default()), Poller: p, Uploader: &fakeUploader{url: baseURL}})
	require.NoError(t, err)
	s := newUploadedSession(t, m)
	_, err = s.ToggleEffect("e-bgremove")
	require.NoError(t, err)

	m.Close()
	assert.Len(t, p.Canceled(), 1)
	_, err = m.Create("user-1")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(Config{Poller: newBlockingPoller()})
	assert.Error(t, err)
	_, err = NewManager(Config{Catalog: catalog.Static(catalog.Default())})
	assert.Error(t, err)
}
