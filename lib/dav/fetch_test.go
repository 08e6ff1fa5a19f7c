package dav

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/edittest"
)

// windows collects everything sent to a handler; ended counts nil windows.
type windows struct {
	got   []*svn.Window
	ended int
}

func (w *windows) handler(window *svn.Window) error {
	if window == nil {
		w.ended++
		return nil
	}
	w.got = append(w.got, window)
	return nil
}

func TestFetchContentsFulltext(t *testing.T) {
	m := newMemTransport()
	m.chunk = 3
	m.files[aURL] = memFile{contentType: "text/plain", body: []byte("abcdefgh")}

	var w windows
	require.NoError(t, fetchContents(context.Background(), m, aURL, "", w.handler))

	// One window per chunk read, each with its own copy of the data.
	require.Len(t, w.got, 3)
	for i, want := range []string{"abc", "def", "gh"} {
		assert.Equal(t, want, string(w.got[i].NewData))
		assert.NoError(t, w.got[i].Validate())
	}
	assert.Zero(t, w.ended, "the caller sends the terminating window")
	assert.Equal(t, []getCall{{url: aURL}}, m.gets)
}

func TestFetchContentsSvndiff(t *testing.T) {
	m := newMemTransport()
	m.files[aURL] = memFile{status: http.StatusIMUsed, contentType: svn.SvndiffContentType, body: helloDelta(t)}

	var out bytes.Buffer
	handler := svn.ApplyHandler(bytes.NewReader([]byte("hello\n")), &out, nil)
	require.NoError(t, fetchContents(context.Background(), m, aURL, aBase, handler))
	assert.Equal(t, "hello world\n", out.String())
	assert.Equal(t, []getCall{{url: aURL, base: aBase}}, m.gets)
}

func TestFetchContentsEmptyBody(t *testing.T) {
	m := newMemTransport()
	m.files[aURL] = memFile{contentType: svn.SvndiffContentType}

	var w windows
	require.NoError(t, fetchContents(context.Background(), m, aURL, "", w.handler))
	assert.Empty(t, w.got)
}

func TestFetchContentsErrors(t *testing.T) {
	truncated := helloDelta(t)
	truncated = truncated[:len(truncated)-3]

	tests := []struct {
		name string
		file *memFile
		want error
	}{
		{"not found", nil, ErrRequestFailed},
		{"server error", &memFile{status: http.StatusInternalServerError, body: []byte("oops")}, ErrRequestFailed},
		{"truncated svndiff", &memFile{contentType: svn.SvndiffContentType, body: truncated}, svn.ErrSvndiffTruncated},
		{"bad svndiff", &memFile{contentType: svn.SvndiffContentType, body: []byte("PNG\x00")}, svn.ErrSvndiffHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemTransport()
			if tt.file != nil {
				m.files[aURL] = *tt.file
			}
			var w windows
			err := fetchContents(context.Background(), m, aURL, "", w.handler)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, w.ended)
		})
	}
}

func TestFetchFile(t *testing.T) {
	t.Run("without href", func(t *testing.T) {
		rec := edittest.New()
		file := &edittest.Node{Path: "x"}
		err := fetchFile[*edittest.Node, *edittest.Node](context.Background(), NewSession(newMemTransport(), testRoot), rec, file, "", "x", true)
		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.Equal(t, []string{"text x"}, rec.Calls)
	})

	t.Run("without text deltas", func(t *testing.T) {
		m := newMemTransport()
		rec := edittest.New()
		file := &edittest.Node{Path: "x"}
		err := fetchFile[*edittest.Node, *edittest.Node](context.Background(), NewSession(m, testRoot), rec, file, "", "x", false)
		require.NoError(t, err)
		assert.True(t, rec.Ended["x"])
		assert.Empty(t, m.gets)
	})

	t.Run("relative href", func(t *testing.T) {
		m := newMemTransport()
		m.files[aURL] = memFile{body: []byte("text\n")}
		rec := edittest.New()
		file := &edittest.Node{Path: "a.txt"}
		err := fetchFile[*edittest.Node, *edittest.Node](context.Background(), sampleSession(m), rec, file, "/repos/ver/5/trunk/a.txt", "a.txt", true)
		require.NoError(t, err)
		assert.Equal(t, "text\n", string(rec.Contents["a.txt"]))
		assert.Equal(t, []getCall{{url: aURL, base: aBase}}, m.gets)
	})
}

func TestFetchProps(t *testing.T) {
	m := newMemTransport()
	m.resources[topURL] = &Resource{Props: map[string]string{
		"svn:custom:zeta":            "z",
		"svn:custom:alpha":           "a",
		"svn:eol-style":              "native",
		"svn:baseline-relative-path": "trunk",
		"DAV:creator-displayname":    "alice",
		"DAV:getlastmodified":        "Mon, 01 Jan 2024 00:00:00 GMT",
	}}

	var got []string
	set := func(name string, value *string) error {
		got = append(got, name+"="+*value)
		return nil
	}
	require.NoError(t, fetchProps(context.Background(), NewSession(m, testRoot), "/repos/ver/5/trunk", set))

	// In order of the names on the wire.
	assert.Equal(t, []string{
		"svn:entry:last-author=alice",
		"alpha=a",
		"zeta=z",
		"svn:eol-style=native",
	}, got)

	err := fetchProps(context.Background(), NewSession(m, testRoot), "", set)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	err = fetchProps(context.Background(), NewSession(m, testRoot), "/repos/elsewhere", set)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestGetFile(t *testing.T) {
	const readme = testRoot + "/docs/read%20me.txt"
	m := newMemTransport()
	m.files[readme] = memFile{contentType: "text/plain", body: []byte("read me\n")}
	m.resources[readme] = &Resource{Props: map[string]string{
		svn.DAVPropCheckedIn: "/repos/ver/3/trunk/docs/read%20me.txt",
		"svn:custom:color":   "red",
		"DAV:version-name":   "3",
		"DAV:getetag":        "x",
	}}
	m.resources[testRoot+"/docs"] = &Resource{IsCollection: true}
	s := NewSession(m, testRoot+"/")

	var out bytes.Buffer
	props, err := s.GetFile(context.Background(), "/docs/read me.txt", &out)
	require.NoError(t, err)
	assert.Equal(t, "read me\n", out.String())
	assert.Equal(t, svn.Properties{
		svn.PropWCVersionURL:      "/repos/ver/3/trunk/docs/read%20me.txt",
		"color":                   "red",
		svn.PropEntryCommittedRev: "3",
	}, props)
	assert.Equal(t, []getCall{{url: readme}}, m.gets)

	_, err = s.GetFile(context.Background(), "docs", &out)
	assert.ErrorIs(t, err, ErrRequestFailed)

	m.files[testRoot+"/docs"] = memFile{body: []byte("<html/>")}
	_, err = s.GetFile(context.Background(), "docs", &out)
	assert.ErrorIs(t, err, svn.ErrNotFile)
}
