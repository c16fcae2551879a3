package docmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeMetaFile renders m as the exact key=value sidecar format spec.md
// §6 mandates: one key=value line per scalar field, then one
// access_<N>=<user>:<RW|R|-> line per ACL entry in order — not a single
// combined ACL line, since the on-disk layout is an external interface
// end-to-end tests read literally (spec.md §8.1's "a.txt.meta contains
// owner=alice and access_0=alice:RW").
func EncodeMetaFile(m *Metadata) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "owner=%s\n", m.Owner)
	fmt.Fprintf(&b, "created=%d\n", m.Created)
	fmt.Fprintf(&b, "modified=%d\n", m.LastModified)
	fmt.Fprintf(&b, "accessed=%d\n", m.LastAccessed)
	fmt.Fprintf(&b, "accessed_by=%s\n", m.LastAccessedBy)
	fmt.Fprintf(&b, "size=%d\n", m.Size)
	fmt.Fprintf(&b, "word_count=%d\n", m.WordCount)
	fmt.Fprintf(&b, "char_count=%d\n", m.CharCount)
	fmt.Fprintf(&b, "access_count=%d\n", len(m.ACL))
	for i, entry := range m.ACL {
		fmt.Fprintf(&b, "access_%d=%s:%s\n", i, entry.Username, permissionToken(entry.Permission))
	}
	return []byte(b.String())
}

// ParseMetaFile parses the .meta sidecar format produced by
// EncodeMetaFile. Unknown keys are ignored (forward-compatible); missing
// numeric fields default to zero rather than erroring, since a storage
// node reading its own previously-written file should never see a
// genuinely malformed one in practice. ACL entries are collected by their
// access_<N> key and re-ordered by index, since map iteration (used to
// collect them while scanning line-by-line) does not preserve line order.
func ParseMetaFile(data []byte) *Metadata {
	m := &Metadata{}
	aclByIndex := make(map[int]ACLEntry)
	maxIndex := -1

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch {
		case key == "owner":
			m.Owner = val
		case key == "created":
			m.Created = atoi64(val)
		case key == "modified":
			m.LastModified = atoi64(val)
		case key == "accessed":
			m.LastAccessed = atoi64(val)
		case key == "accessed_by":
			m.LastAccessedBy = val
		case key == "size":
			m.Size = atoi64(val)
		case key == "word_count":
			m.WordCount = int(atoi64(val))
		case key == "char_count":
			m.CharCount = int(atoi64(val))
		case key == "access_count":
			// Redundant with len(ACL) once parsing completes; not stored
			// separately, only consulted implicitly via aclByIndex's size.
		case strings.HasPrefix(key, "access_"):
			idx, err := strconv.Atoi(strings.TrimPrefix(key, "access_"))
			if err != nil {
				continue
			}
			username, permTok, ok := strings.Cut(val, ":")
			if !ok {
				continue
			}
			aclByIndex[idx] = ACLEntry{Username: username, Permission: permissionFromToken(permTok)}
			if idx > maxIndex {
				maxIndex = idx
			}
		}
	}

	for i := 0; i <= maxIndex; i++ {
		if entry, ok := aclByIndex[i]; ok {
			m.ACL = append(m.ACL, entry)
		}
	}
	return m
}

func atoi64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
