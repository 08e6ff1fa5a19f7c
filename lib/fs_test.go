package svn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSingleSegment(t *testing.T) {
	for _, name := range []string{"a", "a.txt", ".hidden", "..a", "sp ace", "ünï"} {
		assert.True(t, IsSingleSegment(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", "/a", "a/", `a\b`, "a\x00b"} {
		assert.False(t, IsSingleSegment(name), name)
	}
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "a", JoinPath("", "a"))
	assert.Equal(t, "a", JoinPath("a", ""))
	assert.Equal(t, "a/b", JoinPath("a", "b"))
	assert.Equal(t, "http://host/x/y", JoinURL("http://host/x/", "y"))
}
