package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/wc"
)

func TestStatusEditor(t *testing.T) {
	var changes []change
	e := &statusEditor{emit: func(c change) { changes = append(changes, c) }, targetRev: svn.InvalidRevnum}

	require.NoError(t, e.SetTargetRevision(9))
	root, err := e.OpenRoot(8)
	require.NoError(t, err)

	// Added subtree.
	dir, err := e.AddDirectory("new", root, "", svn.InvalidRevnum)
	require.NoError(t, err)
	file, err := e.AddFile("f.c", dir, "", svn.InvalidRevnum)
	require.NoError(t, err)
	handler, err := e.ApplyTextDelta(file)
	require.NoError(t, err)
	require.NoError(t, handler(nil))
	require.NoError(t, e.CloseFile(file))
	require.NoError(t, e.CloseDirectory(dir))

	// Text change.
	file, err = e.OpenFile("a.txt", root, 8)
	require.NoError(t, err)
	_, err = e.ApplyTextDelta(file)
	require.NoError(t, err)
	require.NoError(t, e.CloseFile(file))

	// Entry properties alone are not a change.
	file, err = e.OpenFile("b.txt", root, 8)
	require.NoError(t, err)
	require.NoError(t, e.ChangeFileProp(file, svn.PropEntryCommittedRev, svn.PropValue("9")))
	require.NoError(t, e.CloseFile(file))

	// Property change only.
	file, err = e.OpenFile("c.txt", root, 8)
	require.NoError(t, err)
	require.NoError(t, e.ChangeFileProp(file, svn.PropDirtyMarker, nil))
	require.NoError(t, e.CloseFile(file))

	require.NoError(t, e.DeleteEntry("gone", svn.InvalidRevnum, root))

	sub, err := e.OpenDirectory("sub", root, 8)
	require.NoError(t, err)
	require.NoError(t, e.ChangeDirProp(sub, svn.PropWCVersionURL, svn.PropValue("/repos/ver/9/sub")))
	require.NoError(t, e.CloseDirectory(sub))

	require.NoError(t, e.ChangeDirProp(root, svn.PropDirtyMarker, nil))
	require.NoError(t, e.CloseDirectory(root))
	require.NoError(t, e.CloseEdit())

	assert.Equal(t, svn.Revnum(9), e.targetRev)
	assert.Equal(t, []change{
		{Action: wc.ActionAdd, Kind: svn.NodeKindFile, Path: "new/f.c"},
		{Action: wc.ActionAdd, Kind: svn.NodeKindDir, Path: "new"},
		{Action: wc.ActionUpdate, Kind: svn.NodeKindFile, Path: "a.txt"},
		{Props: true, Kind: svn.NodeKindFile, Path: "c.txt"},
		{Action: wc.ActionDelete, Path: "gone"},
	}, changes)
}

func TestChangeString(t *testing.T) {
	line := change{Action: wc.ActionAdd, Kind: svn.NodeKindDir, Path: "new"}.String()
	assert.Contains(t, line, "A")
	assert.True(t, strings.HasSuffix(line, "   new/"), line)

	line = change{Props: true, Kind: svn.NodeKindFile, Path: "c.txt"}.String()
	assert.Contains(t, line, "M")
	assert.True(t, strings.HasSuffix(line, "   c.txt"), line)
}
