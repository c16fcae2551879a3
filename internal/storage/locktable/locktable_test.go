package locktable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryAcquireGrantsWhenAbsent(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.TryAcquire("d.txt", 1, "alice"))
}

func TestTryAcquireIdempotentForSameHolder(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.TryAcquire("d.txt", 1, "alice"))
	assert.True(t, tbl.TryAcquire("d.txt", 1, "alice"))
}

func TestTryAcquireDeniesDifferentHolder(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.TryAcquire("d.txt", 1, "alice"))
	assert.False(t, tbl.TryAcquire("d.txt", 1, "bob"))
}

func TestReleaseThenReacquireByOther(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.TryAcquire("d.txt", 1, "alice"))
	tbl.Release("d.txt", 1, "alice")
	assert.True(t, tbl.TryAcquire("d.txt", 1, "bob"))
}

func TestDifferentSentencesIndependentLocks(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.TryAcquire("d.txt", 1, "alice"))
	assert.True(t, tbl.TryAcquire("d.txt", 2, "bob"))
}

func TestReleaseOfUnheldLockIsNoop(t *testing.T) {
	tbl := New()
	tbl.Release("d.txt", 1, "alice") // must not panic
	assert.Equal(t, 0, tbl.Count())
}
