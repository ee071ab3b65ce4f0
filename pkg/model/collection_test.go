package model

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollection(t *testing.T) {
	a, b, c := &Node{id: "a"}, &Node{id: "b"}, &Node{id: "c"}
	coll := newCollection()

	assert.True(t, coll.append(a))
	assert.True(t, coll.append(b))
	assert.False(t, coll.append(a), "duplicate")
	assert.True(t, coll.append(c))
	assert.Equal(t, 3, coll.Len())
	assert.Same(t, b, coll.At(1))
	assert.Equal(t, []*Node{a, b, c}, slices.Collect(coll.All()))

	assert.True(t, coll.remove(b))
	assert.False(t, coll.remove(b))
	assert.False(t, coll.Contains(b))
	assert.Equal(t, []*Node{a, c}, coll.Items())

	items := coll.Items()
	items[0] = nil
	assert.Same(t, a, coll.At(0), "Items returns a copy")
}

func TestNilCollection(t *testing.T) {
	var coll *Collection
	assert.Equal(t, 0, coll.Len())
	assert.False(t, coll.Contains(&Node{}))
	assert.Nil(t, coll.Items())
	assert.Empty(t, slices.Collect(coll.All()))
}
