package tristore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyed(t *testing.T) {
	k := newKeyed[int]()
	assert.Nil(t, k.order())

	k.set("b", 1)
	k.set("a", 2)
	k.set("c", 3)
	k.set("b", 4)
	assert.Equal(t, []string{"b", "a", "c"}, k.order())
	v, ok := k.get("b")
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	k.remove("a")
	k.remove("missing")
	assert.Equal(t, []string{"b", "c"}, k.order())
	assert.False(t, k.has("a"))
	assert.Equal(t, 2, k.len())

	// order returns a copy.
	keys := k.order()
	keys[0] = "z"
	assert.Equal(t, []string{"b", "c"}, k.order())
}
