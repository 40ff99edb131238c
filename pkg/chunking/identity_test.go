package chunking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParentID_Deterministic(t *testing.T) {
	text := "Arsenal beat Chelsea 2-1 at the Emirates."
	assert.Equal(t, ParentID(text), ParentID(text))
	assert.Len(t, ParentID(text), 64)
	assert.NotEqual(t, ParentID(text), ParentID(text+" "))
}

func TestChildID_DependsOnParent(t *testing.T) {
	text := "Saka scored in the 34th minute."
	a := ChildID(ParentID("parent a"), text)
	b := ChildID(ParentID("parent b"), text)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ChildID(ParentID("parent a"), text))
}

func TestChildID_NoCollisionsAcrossCorpus(t *testing.T) {
	seen := make(map[string]string)
	for p := 0; p < 50; p++ {
		pid := ParentID(fmt.Sprintf("parent %d", p))
		for c := 0; c < 50; c++ {
			key := fmt.Sprintf("%d/%d", p, c)
			id := ChildID(pid, fmt.Sprintf("child %d", c))
			prev, dup := seen[id]
			assert.False(t, dup, "collision between %s and %s", prev, key)
			seen[id] = key
		}
	}
	assert.Len(t, seen, 2500)
}
