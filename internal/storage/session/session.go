// Package session implements the storage node's per-worker WriteSession
// (spec.md §3/§4.2): thread-local state holding the file being edited, the
// held sentence index, and the full in-memory buffer mutated by
// word-replacement frames until ETIRW commits it. Grounded on spec.md
// §4.2's WRITE canonical sequence directly — no teacher antecedent exists
// for a stateful multi-frame edit buffer, so this package's shape is
// derived from the spec's numbered steps rather than adapted from an
// existing file (see DESIGN.md).
package session

import (
	"github.com/opendocstore/docstore/pkg/docmodel"
)

// Session is the one-per-worker WriteSession. A worker goroutine owns
// exactly one Session at a time; it is never shared across goroutines,
// matching spec.md §4.2's "thread-local WriteSession state; no sharing of
// WriteSession between threads."
type Session struct {
	Filename string
	Sentence int // 0-based sentence index this session holds the lock on
	Holder   string

	sentences []string // SplitSentences(buffer) at acquire time, kept in sync as edits land
}

// New starts a session over the given file contents at the given
// 0-based sentence index (spec.md §4.2 steps 1-4).
func New(filename string, sentenceIdx int, holder string, contents []byte) *Session {
	return &Session{
		Filename:  filename,
		Sentence:  sentenceIdx,
		Holder:    holder,
		sentences: docmodel.SplitSentences(string(contents)),
	}
}

// SentenceCount returns the number of sentences currently in the buffer.
func (s *Session) SentenceCount() int { return len(s.sentences) }

// EnsureAppendSlot grows the sentence slice by one empty, delimiter-less
// sentence if s.Sentence sits exactly at the current sentence count — the
// append case invariant I5 allows ("equal to sentence_count"), covering
// the empty-file boundary behavior in spec.md §8 ("WRITE sentence 1 word 1
// succeeds and produces a one-word file"). It is a no-op otherwise.
func (s *Session) EnsureAppendSlot() {
	if s.Sentence == len(s.sentences) {
		s.sentences = append(s.sentences, "")
	}
}

// ReplaceWord applies one word-update mini-command (spec.md §4.2 step 6)
// to the session's held sentence. wordIdx is 0-based; wordIdx equal to
// the current word count appends a new word (spec.md §8's boundary
// behavior). Returns false when wordIdx is past that point; the caller
// turns that into docerr.InvalidIndex. ReplaceWord assumes s.Sentence is
// already validated against SentenceCount.
func (s *Session) ReplaceWord(wordIdx int, newWord string) (ok bool) {
	updated, ok := docmodel.ReplaceWord(s.sentences[s.Sentence], wordIdx, newWord)
	if !ok {
		return false
	}
	s.sentences[s.Sentence] = updated
	return true
}

// Buffer reassembles the full file contents from the session's current
// sentence slice using the byte-exact round-trip join (R3) — used for any
// internal inspection where the original spacing must be preserved.
func (s *Session) Buffer() []byte {
	return []byte(docmodel.JoinSentences(s.sentences))
}

// CommitBytes reassembles the session's sentences using the canonical,
// single-space-between-sentences rejoin that spec.md §4.2 step 6 and its
// worked examples (§8.4) expect at ETIRW commit time — distinct from
// Buffer's byte-exact join, see DESIGN.md's Open Question resolution on
// sentence parsing vs. canonical rejoin.
func (s *Session) CommitBytes() []byte {
	return []byte(docmodel.CanonicalizeSentences(s.sentences))
}
