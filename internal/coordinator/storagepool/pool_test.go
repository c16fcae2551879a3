package storagepool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRoundRobin(t *testing.T) {
	p := New()
	p.Register(&Node{ID: "s1", Addr: "10.0.0.1:9000"})
	p.Register(&Node{ID: "s2", Addr: "10.0.0.2:9000"})

	n1, err := p.Next()
	require.NoError(t, err)
	n2, err := p.Next()
	require.NoError(t, err)
	n3, err := p.Next()
	require.NoError(t, err)

	assert.Equal(t, "s1", n1.ID)
	assert.Equal(t, "s2", n2.ID)
	assert.Equal(t, "s1", n3.ID, "cursor must wrap modulo node count")
}

func TestNextWithNoNodesIsServerUnavailable(t *testing.T) {
	p := New()
	_, err := p.Next()
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	p := New()
	p.Register(&Node{ID: "s1"})
	p.Register(&Node{ID: "s2"})
	p.Remove("s1")

	_, ok := p.ByID("s1")
	assert.False(t, ok)
	assert.Equal(t, 1, p.Count())
}
