package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocstore/docstore/pkg/docmodel"
)

func TestFindMissThenHit(t *testing.T) {
	idx := New()
	idx.Put(&Entry{Filename: "f1.txt", StorageAddr: "10.0.0.1:9000"})

	_, ok := idx.Find("f1.txt")
	require.True(t, ok)
	hits, misses := idx.HitMissCounts()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 1, misses)

	_, ok = idx.Find("f1.txt")
	require.True(t, ok)
	hits, misses = idx.HitMissCounts()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestFindNotFound(t *testing.T) {
	idx := New()
	_, ok := idx.Find("ghost.txt")
	assert.False(t, ok)
}

func TestDeleteThenFindNotFound(t *testing.T) {
	idx := New()
	idx.Put(&Entry{Filename: "f1.txt"})
	_, _ = idx.Find("f1.txt") // promote into cache

	idx.Delete("f1.txt")

	_, ok := idx.Find("f1.txt")
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
}

// TestCacheHitMissSequence reproduces spec.md §8.6's literal scenario:
// accessing f1,f2,f3,f1,f4,f2 should miss on the first occurrence of each
// filename and hit on the repeats.
func TestCacheHitMissSequence(t *testing.T) {
	idx := New()
	for _, f := range []string{"f1", "f2", "f3", "f4"} {
		idx.Put(&Entry{Filename: f})
	}

	sequence := []string{"f1", "f2", "f3", "f1", "f4", "f2"}
	wantHit := []bool{false, false, false, true, false, true}

	for i, f := range sequence {
		before, _ := idx.HitMissCounts()
		_, ok := idx.Find(f)
		require.True(t, ok)
		after, _ := idx.HitMissCounts()
		gotHit := after > before
		assert.Equal(t, wantHit[i], gotHit, "step %d (%s)", i, f)
	}
}

func TestAllReturnsEveryEntry(t *testing.T) {
	idx := New()
	idx.Put(&Entry{Filename: "a", Meta: docmodel.Metadata{Owner: "alice"}})
	idx.Put(&Entry{Filename: "b", Meta: docmodel.Metadata{Owner: "bob"}})

	all := idx.All()
	assert.Len(t, all, 2)
}
