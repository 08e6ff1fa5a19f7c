package dav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/edittest"
)

const trunkPropfind = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:" xmlns:S="svn:" xmlns:C="svn:custom:">
<D:response>
<D:href>/repos/trunk/</D:href>
<D:propstat>
<D:prop>
<D:resourcetype><D:collection/></D:resourcetype>
<D:version-name>7</D:version-name>
<D:checked-in><D:href>/repos/ver/7/trunk</D:href></D:checked-in>
<C:color>red</C:color>
<S:ignore>*.o</S:ignore>
</D:prop>
<D:status>HTTP/1.1 200 OK</D:status>
</D:propstat>
<D:propstat>
<D:prop><D:getcontentlength/></D:prop>
<D:status>HTTP/1.1 404 Not Found</D:status>
</D:propstat>
</D:response>
</D:multistatus>
`

func TestParseMultistatus(t *testing.T) {
	resource, err := ParseMultistatus(strings.NewReader(trunkPropfind))
	require.NoError(t, err)
	assert.Equal(t, &Resource{
		URL:          "/repos/trunk/",
		IsCollection: true,
		Props: map[string]string{
			"DAV:version-name":   "7",
			svn.DAVPropCheckedIn: "/repos/ver/7/trunk",
			"svn:custom:color":   "red",
			"svn:ignore":         "*.o",
		},
	}, resource)

	_, err = ParseMultistatus(strings.NewReader(`<D:multistatus xmlns:D="DAV:"></D:multistatus>`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	_, err = ParseMultistatus(strings.NewReader(`<D:multistatus xmlns:D="DAV:"><D:response>`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "", mediaType(""))
	assert.Equal(t, svn.SvndiffContentType, mediaType("application/vnd.svn-svndiff"))
	assert.Equal(t, "text/plain", mediaType(`text/plain; charset="utf-8"`))
	assert.Equal(t, "text/plain", mediaType("Text/Plain;;"))
}

// svnServer is a minimal repository server: one REPORT answer, one file and
// its properties.
func svnServer(t *testing.T, report string) *httptest.Server {
	t.Helper()
	file := "/repos/ver/6/trunk/f.txt"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "svndelta", r.UserAgent())
		switch {
		case r.Method == "REPORT" && r.URL.Path == "/repos/trunk":
			assert.Contains(t, r.Header.Get("Content-Type"), "text/xml")
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `<S:entry rev="5"></S:entry>`)
			w.Header().Set("Content-Type", "text/xml")
			_, _ = io.WriteString(w, report)

		case r.Method == http.MethodGet && r.URL.Path == file:
			if r.Header.Get(DeltaBaseHeader) != "" {
				assert.Equal(t, "/repos/ver/5/trunk/f.txt", r.Header.Get(DeltaBaseHeader))
				delta := helloDelta(t)
				w.Header().Set("Content-Type", svn.SvndiffContentType)
				w.WriteHeader(http.StatusIMUsed)
				_, _ = w.Write(delta)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "hello world\n")

		case r.Method == "PROPFIND" && r.URL.Path == file:
			assert.Equal(t, "0", r.Header.Get("Depth"))
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = io.WriteString(w, `<D:multistatus xmlns:D="DAV:" xmlns:C="svn:custom:"><D:response>
<D:href>`+file+`</D:href>
<D:propstat><D:prop><C:owner>ops</C:owner></D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat>
</D:response></D:multistatus>`)

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

const addFileReport = `<S:update-report xmlns:S="svn:" xmlns:D="DAV:">
<S:target-revision rev="6"/>
<S:open-directory rev="5">
<S:add-file name="f.txt">
<D:checked-in><D:href>/repos/ver/6/trunk/f.txt</D:href></D:checked-in>
</S:add-file>
</S:open-directory>
</S:update-report>`

const openFileReport = `<S:update-report xmlns:S="svn:" xmlns:D="DAV:">
<S:target-revision rev="6"/>
<S:open-directory rev="5">
<S:open-file name="f.txt" rev="5">
<D:checked-in><D:href>/repos/ver/6/trunk/f.txt</D:href></D:checked-in>
<S:fetch-file/>
</S:open-file>
</S:open-directory>
</S:update-report>`

func TestHTTPUpdate(t *testing.T) {
	server := svnServer(t, addFileReport)
	s := NewSession(NewHTTPTransport(server.Client()), server.URL+"/repos/trunk")
	rec := edittest.New()

	r := DoUpdate[*edittest.Node, *edittest.Node](s, 6, "", true, rec)
	require.NoError(t, r.SetPath("", 5))
	require.NoError(t, r.FinishReport(context.Background()))

	assert.Equal(t, []string{
		"target 6",
		"open-root",
		"add-file f.txt",
		"file-prop f.txt svn:wc:ra_dav:version-url=/repos/ver/6/trunk/f.txt",
		"text f.txt",
		"file-prop f.txt owner=ops",
		"close-file f.txt",
		"close-dir ",
		"close-edit",
	}, rec.Calls)
	assert.Equal(t, "hello world\n", string(rec.Contents["f.txt"]))
}

func TestHTTPUpdateWithDelta(t *testing.T) {
	server := svnServer(t, openFileReport)
	s := NewSession(NewHTTPTransport(server.Client()), server.URL+"/repos/trunk")
	s.BaseURL = func(relPath string) (string, error) {
		return "/repos/ver/5/trunk/" + relPath, nil
	}
	rec := edittest.New()
	rec.Base["f.txt"] = []byte("hello\n")

	r := DoUpdate[*edittest.Node, *edittest.Node](s, 6, "", true, rec)
	require.NoError(t, r.SetPath("", 5))
	require.NoError(t, r.FinishReport(context.Background()))
	assert.Equal(t, "hello world\n", string(rec.Contents["f.txt"]))
	assert.Equal(t, 1, rec.Windows["f.txt"])
}

func TestHTTPReportRejected(t *testing.T) {
	server := svnServer(t, "")
	s := NewSession(NewHTTPTransport(server.Client()), server.URL+"/repos/elsewhere")
	rec := edittest.New()

	err := DoUpdate[*edittest.Node, *edittest.Node](s, 6, "", true, rec).FinishReport(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, []string{"abort-edit"}, rec.Calls)
}

func TestHTTPPropFind(t *testing.T) {
	server := svnServer(t, "")
	transport := NewHTTPTransport(server.Client())

	resource, err := transport.PropFind(context.Background(), server.URL+"/repos/ver/6/trunk/f.txt")
	require.NoError(t, err)
	assert.False(t, resource.IsCollection)
	assert.Equal(t, map[string]string{"svn:custom:owner": "ops"}, resource.Props)

	_, err = transport.PropFind(context.Background(), server.URL+"/repos/nothing")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestHTTPGetFile(t *testing.T) {
	server := svnServer(t, "")
	s := NewSession(NewHTTPTransport(nil), server.URL+"/repos/ver/6/trunk")

	var out strings.Builder
	props, err := s.GetFile(context.Background(), "f.txt", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out.String())
	assert.Equal(t, svn.Properties{"owner": "ops"}, props)
}

func TestHTTPListAndLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PROPFIND", r.Method)
		w.WriteHeader(http.StatusMultiStatus)
		switch {
		case r.URL.Path == "/repos/vcc" && r.Header.Get("Label") == "5":
			assert.Equal(t, "0", r.Header.Get("Depth"))
			_, _ = io.WriteString(w, `<D:multistatus xmlns:D="DAV:"><D:response><D:href>/repos/bln/5</D:href>
<D:propstat><D:prop><D:version-name>5</D:version-name></D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat>
</D:response></D:multistatus>`)
		case r.URL.Path == "/repos/bc/5/trunk":
			assert.Equal(t, "1", r.Header.Get("Depth"))
			assert.Empty(t, r.Header.Get("Label"))
			_, _ = io.WriteString(w, `<D:multistatus xmlns:D="DAV:">
<D:response><D:href>/repos/bc/5/trunk/</D:href><D:propstat><D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
<D:response><D:href>/repos/bc/5/trunk/a.txt</D:href><D:propstat><D:prop><D:resourcetype/></D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
</D:multistatus>`)
		default:
			_, _ = io.WriteString(w, `<D:multistatus xmlns:D="DAV:"/>`)
		}
	}))
	t.Cleanup(server.Close)
	transport := NewHTTPTransport(server.Client())

	baseline, err := transport.PropFindLabel(context.Background(), server.URL+"/repos/vcc", "5")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{svn.DAVPropVersionName: "5"}, baseline.Props)

	listing, err := transport.List(context.Background(), server.URL+"/repos/bc/5/trunk")
	require.NoError(t, err)
	require.Len(t, listing, 2)
	assert.True(t, listing[0].IsCollection)
	assert.Equal(t, "/repos/bc/5/trunk/a.txt", listing[1].URL)
	assert.False(t, listing[1].IsCollection)

	_, err = transport.PropFind(context.Background(), server.URL+"/repos/vcc")
	assert.ErrorIs(t, err, ErrMalformedResponse, "empty multistatus")
}
