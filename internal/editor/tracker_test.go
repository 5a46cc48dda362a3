package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/catalog"
	"lumina/internal/domain"
)

func TestTrackerIgnoresStaleJobs(t *testing.T) {
	tr := NewTracker(0, nil)
	tr.Start(domain.TransformationJob{ID: "a", EffectID: "e-bgremove"})
	tr.Start(domain.TransformationJob{ID: "b", EffectID: "e-upscale"})

	assert.False(t, tr.MarkProcessing("a"))
	assert.False(t, tr.Progress("a", 3, 50))
	_, ok := tr.Complete("a", "url-a", false)
	assert.False(t, ok)
	assert.False(t, tr.Fail("a"))
	assert.False(t, tr.Discard("a"))

	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.ID)
	assert.Equal(t, domain.JobStatusQueued, cur.Status)
	assert.Empty(t, tr.History())
}

func TestTrackerProgressIsMonotonic(t *testing.T) {
	tr := NewTracker(0, nil)
	tr.Start(domain.TransformationJob{ID: "a"})
	require.True(t, tr.MarkProcessing("a"))
	cur, _ := tr.Current()
	assert.Equal(t, 10.0, cur.Progress)
	assert.Equal(t, domain.JobStatusProcessing, cur.Status)

	tr.Progress("a", 2, 13)
	tr.Progress("a", 1, 11.5)
	cur, _ = tr.Current()
	assert.Equal(t, 13.0, cur.Progress)
	assert.Equal(t, 2, cur.Attempts)
}

func TestTrackerHistoryCap(t *testing.T) {
	clock := time.Unix(0, 0)
	tr := NewTracker(3, func() time.Time { clock = clock.Add(time.Second); return clock })
	for _, id := range []string{"1", "2", "3", "4"} {
		tr.Start(domain.TransformationJob{ID: id})
		done, ok := tr.Complete(id, "url-"+id, false)
		require.True(t, ok)
		assert.Equal(t, 100.0, done.Progress)
	}
	history := tr.History()
	require.Len(t, history, 3)
	assert.Equal(t, []string{"4", "3", "2"}, []string{history[0].ID, history[1].ID, history[2].ID})

	// Completed jobs are terminal.
	assert.False(t, tr.Progress("4", 9, 50))
	assert.False(t, tr.Processing())
}

func TestTrackerFailAndDiscard(t *testing.T) {
	tr := NewTracker(0, nil)
	tr.Start(domain.TransformationJob{ID: "a"})
	require.True(t, tr.Fail("a"))
	cur, _ := tr.Current()
	assert.Equal(t, domain.JobStatusError, cur.Status)
	assert.Empty(t, tr.History())

	tr.Start(domain.TransformationJob{ID: "b"})
	require.True(t, tr.Discard("b"))
	_, ok := tr.Current()
	assert.False(t, ok)
}

func TestViewResolvesLabel(t *testing.T) {
	cat := catalog.Default()
	v := View(cat, domain.TransformationJob{ID: "a", EffectID: "e-bgremove"})
	want, _ := cat.Lookup("e-bgremove")
	assert.Equal(t, want.Name, v.Label)
	assert.Equal(t, "e-unknown", View(cat, domain.TransformationJob{EffectID: "e-unknown"}).Label)
}
