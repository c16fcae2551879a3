package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceWordThenCommit(t *testing.T) {
	s := New("d.txt", 0, "alice", []byte("one. two. three."))
	require.Equal(t, 3, s.SentenceCount())

	ok := s.ReplaceWord(0, "ONE")
	require.True(t, ok)

	assert.Equal(t, "ONE. two. three.", string(s.CommitBytes()))
}

func TestAppendWordAtWordCount(t *testing.T) {
	s := New("d.txt", 0, "alice", []byte("one two."))
	ok := s.ReplaceWord(2, "three")
	require.True(t, ok)
	assert.Equal(t, "one two three.", string(s.CommitBytes()))
}

func TestReplaceWordOutOfRangeFails(t *testing.T) {
	s := New("d.txt", 0, "alice", []byte("one two."))
	ok := s.ReplaceWord(5, "x")
	assert.False(t, ok)
}
