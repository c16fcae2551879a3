package docmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePermissionWriteImpliesRead(t *testing.T) {
	assert.Equal(t, PermRead|PermWrite, NormalizePermission(PermWrite))
	assert.Equal(t, PermRead, NormalizePermission(PermRead))
	assert.Equal(t, PermNone, NormalizePermission(PermNone))
}

func TestMetadataPermissionForOwnerAlwaysFull(t *testing.T) {
	m := &Metadata{Owner: "alice", ACL: []ACLEntry{{Username: "alice", Permission: PermRead}}}
	p := m.PermissionFor("alice")
	assert.True(t, p.CanRead())
	assert.True(t, p.CanWrite())
}

func TestMetadataSetAndRemovePermission(t *testing.T) {
	m := &Metadata{Owner: "alice"}
	m.SetPermission("bob", PermWrite)
	assert.Equal(t, PermRead|PermWrite, m.PermissionFor("bob"))

	m.SetPermission("bob", PermRead)
	assert.Equal(t, PermRead, m.PermissionFor("bob"))
	assert.False(t, m.PermissionFor("bob").CanWrite())

	m.RemovePermission("bob")
	assert.Equal(t, PermNone, m.PermissionFor("bob"))
}

func TestMetadataCloneIsDeep(t *testing.T) {
	m := &Metadata{Owner: "alice", ACL: []ACLEntry{{Username: "bob", Permission: PermRead}}}
	cp := m.Clone()
	cp.ACL[0].Permission = PermWrite
	assert.Equal(t, PermRead, m.ACL[0].Permission, "mutating the clone's ACL must not affect the original")
}

func TestACLWireRoundTrip(t *testing.T) {
	acl := []ACLEntry{
		{Username: "alice", Permission: PermRead | PermWrite},
		{Username: "bob", Permission: PermRead},
		{Username: "carol", Permission: PermNone},
	}
	s := SerializeACLWire(acl)
	assert.Equal(t, "alice:RW,bob:R,carol:-", s)

	parsed := ParseACLWire(s)
	require.Equal(t, acl, parsed)
}

func TestParseACLWireEmpty(t *testing.T) {
	assert.Nil(t, ParseACLWire(""))
}

func TestSplitJoinSentencesRoundTrip(t *testing.T) {
	tests := []string{
		"Hello world. How are you? Fine!",
		"No terminator here",
		"",
		"One.",
		"A. B. C.",
	}
	for _, body := range tests {
		sentences := SplitSentences(body)
		assert.Equal(t, body, JoinSentences(sentences), "round-trip must be byte-exact for %q", body)
	}
}

func TestReplaceWordWithinRange(t *testing.T) {
	out, ok := ReplaceWord("The quick fox.", 1, "slow")
	require.True(t, ok)
	assert.Equal(t, "The slow fox.", out)
}

func TestReplaceWordAppend(t *testing.T) {
	out, ok := ReplaceWord("The quick fox.", 3, "jumps")
	require.True(t, ok)
	assert.Equal(t, "The quick fox jumps.", out)
}

func TestReplaceWordOutOfRange(t *testing.T) {
	_, ok := ReplaceWord("The quick fox.", 10, "nope")
	assert.False(t, ok)
}

func TestCanonicalizeSentencesSingleSpacing(t *testing.T) {
	sentences := []string{"The   quick  fox.", "  How are   you?"}
	got := CanonicalizeSentences(sentences)
	assert.Equal(t, "The quick fox. How are you?", got)
}

func TestValidFilename(t *testing.T) {
	assert.True(t, ValidFilename("report.txt"))
	assert.False(t, ValidFilename(""))
	assert.False(t, ValidFilename("a/b.txt"))
	assert.False(t, ValidFilename("weird*name.txt"))
	assert.False(t, ValidFilename(string(make([]byte, 257))))
}

func TestMetaFileRoundTrip(t *testing.T) {
	m := &Metadata{
		Owner:          "alice",
		Created:        1000,
		LastModified:   2000,
		LastAccessed:   3000,
		LastAccessedBy: "bob",
		Size:           42,
		WordCount:      7,
		CharCount:      42,
		ACL:            []ACLEntry{{Username: "alice", Permission: PermRead | PermWrite}, {Username: "bob", Permission: PermRead}},
	}
	encoded := EncodeMetaFile(m)
	decoded := ParseMetaFile(encoded)
	assert.Equal(t, m, decoded)
}

func TestMetaFileUsesLiteralKeyNames(t *testing.T) {
	m := &Metadata{Owner: "alice", ACL: []ACLEntry{{Username: "alice", Permission: PermRead | PermWrite}}}
	encoded := string(EncodeMetaFile(m))

	assert.Contains(t, encoded, "owner=alice\n")
	assert.Contains(t, encoded, "access_count=1\n")
	assert.Contains(t, encoded, "access_0=alice:RW\n")
}
