package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocstore/docstore/internal/docerr"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"create", Request{Command: CmdCreate, Username: "alice", Args: "report.txt"}},
		{"write", Request{Command: CmdWrite, Username: "bob", Args: "report.txt 3"}},
		{"empty args", Request{Command: CmdList, Username: "carol", Args: ""}},
		{"max-ish username", Request{Command: CmdView, Username: strings.Repeat("u", UsernameSize-1), Args: "-l"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeRequest(tt.req)
			require.NoError(t, err)
			require.Len(t, raw, RequestSize)

			got, err := DecodeRequest(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.req, got)
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{"ok empty", Response{Status: StatusOK, Data: ""}},
		{"not found", Response{Status: StatusNotFound, Data: "Error: file not found"}},
		{"payload", Response{Status: StatusOK, Data: "The quick brown fox."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeResponse(tt.resp)
			require.NoError(t, err)
			require.Len(t, raw, ResponseSize)

			got, err := DecodeResponse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.resp, got)
		})
	}
}

func TestDecodeRequestRejectsBadMagic(t *testing.T) {
	raw, err := EncodeRequest(Request{Command: CmdRead, Username: "alice", Args: "f.txt"})
	require.NoError(t, err)
	raw[0] ^= 0xFF

	_, err = DecodeRequest(raw)
	require.Error(t, err)
	var de *docerr.Error
	require.True(t, docerr.As(err, &de))
	assert.Equal(t, docerr.Network, de.Code)
}

func TestDecodeRequestRejectsChecksumMismatch(t *testing.T) {
	raw, err := EncodeRequest(Request{Command: CmdRead, Username: "alice", Args: "f.txt"})
	require.NoError(t, err)
	raw[10] ^= 0xFF // corrupt a username byte without touching magic

	_, err = DecodeRequest(raw)
	require.Error(t, err)
	var de *docerr.Error
	require.True(t, docerr.As(err, &de))
	assert.Equal(t, docerr.Network, de.Code)
}

func TestDecodeRequestRejectsShortFrame(t *testing.T) {
	_, err := DecodeRequest(make([]byte, RequestSize-1))
	require.Error(t, err)
}

func TestChecksumDeterministic(t *testing.T) {
	req := Request{Command: CmdStream, Username: "dana", Args: "novel.txt --paced"}
	raw1, err := EncodeRequest(req)
	require.NoError(t, err)
	raw2, err := EncodeRequest(req)
	require.NoError(t, err)
	assert.Equal(t, raw1, raw2)
}

func TestStatusFromCodeCoversEveryDocerrCode(t *testing.T) {
	codes := []docerr.Code{
		docerr.OK, docerr.NotFound, docerr.FileExists, docerr.ReadPermission,
		docerr.WritePermission, docerr.OwnerRequired, docerr.Locked,
		docerr.InvalidIndex, docerr.InvalidFilename, docerr.InvalidArgs,
		docerr.InvalidOperation, docerr.ServerUnavailable, docerr.Network,
		docerr.Internal,
	}
	seen := make(map[Status]bool)
	for _, c := range codes {
		s := StatusFromCode(c)
		assert.False(t, seen[s], "status %v produced by more than one docerr.Code", s)
		seen[s] = true
	}
}
