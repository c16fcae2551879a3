package docmodel

import "strings"

// sentenceDelims are the three characters that terminate a sentence, per
// spec.md §3: '.', '!', '?'.
const sentenceDelims = ".!?"

// SplitSentences partitions body into sentences by scanning for a
// delimiter. Every byte of body belongs to exactly one returned fragment
// and strings.Join(SplitSentences(body), "") reconstructs body exactly —
// this is the general-purpose, round-trip-law-preserving parser (R3);
// WRITE's "single space between sentences" canonicalization is a separate
// transform applied only at commit time, see CanonicalizeSentences.
//
// A fragment runs up to and including its terminating delimiter; a
// trailing fragment with no delimiter (an unterminated last sentence) is
// still returned, delimiter-less.
func SplitSentences(body string) []string {
	var sentences []string
	start := 0
	for i, r := range body {
		if strings.ContainsRune(sentenceDelims, r) {
			sentences = append(sentences, body[start:i+1])
			start = i + 1
		}
	}
	if start < len(body) {
		sentences = append(sentences, body[start:])
	}
	return sentences
}

// JoinSentences is the exact inverse of SplitSentences: it concatenates
// fragments with no separator, since each fragment already carries its own
// trailing delimiter (and whatever whitespace followed it in the original
// bytes, for fragments taken straight from SplitSentences).
func JoinSentences(sentences []string) string {
	return strings.Join(sentences, "")
}

// Words splits a sentence fragment into whitespace-delimited tokens,
// stripping (not preserving) the whitespace itself — used only for word
// indexing during WRITE, not for round-tripping raw bytes.
func Words(sentence string) []string {
	return strings.Fields(sentence)
}

// ReplaceWord returns sentence with its 0-based wordIdx token replaced by
// newWord, or with newWord appended if wordIdx equals the current word
// count (spec §4.2 step 6). ok is false if wordIdx is out of range on
// both counts (neither replace nor valid append position).
//
// The sentence's terminating delimiter is stripped before word-splitting
// and reattached after — Words/Fields only splits on whitespace, so
// without this the delimiter would stay glued to the fragment's last
// word (e.g. "two." inside " two.") instead of being treated as a
// sentence-level terminator.
func ReplaceWord(sentence string, wordIdx int, newWord string) (result string, ok bool) {
	body, delim := sentenceBody(sentence)
	words := Words(body)
	switch {
	case wordIdx >= 0 && wordIdx < len(words):
		words[wordIdx] = newWord
	case wordIdx == len(words):
		words = append(words, newWord)
	default:
		return sentence, false
	}
	return strings.Join(words, " ") + delim, true
}

// sentenceBody strips a trailing delimiter (if present) from a fragment,
// leaving the word content only — used by CanonicalizeSentences and
// ReplaceWord.
func sentenceBody(sentence string) (body string, delim string) {
	trimmed := strings.TrimRight(sentence, " \t\r\n")
	if trimmed == "" {
		return sentence, ""
	}
	last := trimmed[len(trimmed)-1]
	if strings.IndexByte(sentenceDelims, last) >= 0 {
		return trimmed[:len(trimmed)-1], string(last)
	}
	return sentence, ""
}

// CanonicalizeSentences rejoins a sentence list the way the WRITE commit
// path does: each sentence's words are collapsed to single spaces, a
// single space separates consecutive sentences, and each sentence's
// terminating delimiter is preserved. This is intentionally distinct from
// JoinSentences/SplitSentences (which are byte-exact for arbitrary input)
// — it is only invoked once, at ETIRW commit, matching spec.md's worked
// examples which are already single-spaced.
func CanonicalizeSentences(sentences []string) string {
	parts := make([]string, 0, len(sentences))
	for _, s := range sentences {
		body, delim := sentenceBody(s)
		words := strings.Fields(body)
		parts = append(parts, strings.Join(words, " ")+delim)
	}
	return strings.Join(parts, " ")
}
