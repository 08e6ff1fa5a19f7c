package dav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/edittest"
)

const testRoot = "http://svn.example.com/repos/trunk"

type memFile struct {
	status      int
	contentType string
	body        []byte
}

type getCall struct {
	url  string
	base string
}

// memTransport serves canned responses and remembers what was asked of it.
type memTransport struct {
	files     map[string]memFile
	resources map[string]*Resource
	report    string
	reportErr error

	// labels holds labelled resources under url + "@" + label; listings the
	// member URLs of a collection.
	labels   map[string]*Resource
	listings map[string][]string

	// chunk, if set, limits every GET body read to this many bytes.
	chunk int

	gets      []getCall
	propfinds []string
	lists     []string
	reported  []byte
}

func newMemTransport() *memTransport {
	return &memTransport{
		files:     make(map[string]memFile),
		resources: make(map[string]*Resource),
		labels:    make(map[string]*Resource),
		listings:  make(map[string][]string),
	}
}

func (m *memTransport) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	m.gets = append(m.gets, getCall{url: url, base: header.Get(DeltaBaseHeader)})
	file, ok := m.files[url]
	if !ok {
		return &Response{Status: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("no such file"))}, nil
	}
	status := file.status
	if status == 0 {
		status = http.StatusOK
	}
	var body io.Reader = bytes.NewReader(file.body)
	if m.chunk > 0 {
		body = &chunkReader{data: file.body, size: m.chunk}
	}
	return &Response{Status: status, ContentType: file.contentType, Body: io.NopCloser(body)}, nil
}

func (m *memTransport) Report(ctx context.Context, url string, body io.Reader) (io.ReadCloser, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	m.reported = data
	if m.reportErr != nil {
		return nil, m.reportErr
	}
	return io.NopCloser(strings.NewReader(m.report)), nil
}

func (m *memTransport) PropFind(ctx context.Context, url string) (*Resource, error) {
	m.propfinds = append(m.propfinds, url)
	resource, ok := m.resources[url]
	if !ok {
		return nil, fmt.Errorf("%w: PROPFIND %s: 404 Not Found", ErrRequestFailed, url)
	}
	return resource, nil
}

func (m *memTransport) PropFindLabel(ctx context.Context, url, label string) (*Resource, error) {
	m.propfinds = append(m.propfinds, url+"@"+label)
	resource, ok := m.labels[url+"@"+label]
	if !ok {
		return nil, fmt.Errorf("%w: PROPFIND %s (label %s): 404 Not Found", ErrRequestFailed, url, label)
	}
	return resource, nil
}

func (m *memTransport) List(ctx context.Context, url string) ([]*Resource, error) {
	m.lists = append(m.lists, url)
	self, ok := m.resources[url]
	if !ok {
		return nil, fmt.Errorf("%w: PROPFIND %s: 404 Not Found", ErrRequestFailed, url)
	}
	listing := []*Resource{self}
	for _, memberURL := range m.listings[url] {
		listing = append(listing, m.resources[memberURL])
	}
	return listing, nil
}

// chunkReader hands out data a few bytes at a time.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := min(c.size, len(p), len(c.data))
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

// helloDelta is an svndiff that turns "hello\n" into "hello world\n".
func helloDelta(t *testing.T) []byte {
	t.Helper()
	var out bytes.Buffer
	enc, err := svn.NewEncoder(&out, 1)
	require.NoError(t, err)
	require.NoError(t, enc.WriteWindow(&svn.Window{
		SourceLen: 6,
		TargetLen: 12,
		Ops: []svn.Op{
			{Action: svn.OpSource, Offset: 0, Length: 5},
			{Action: svn.OpNew, Offset: 0, Length: 7},
		},
		NewData: []byte(" world\n"),
	}))
	require.NoError(t, enc.Close())
	return out.Bytes()
}

// drive runs doc through DriveReport into a fresh recorder.
func drive(t *testing.T, m *memTransport, doc string, fetchContent bool) (*edittest.Recorder, error) {
	t.Helper()
	rec := edittest.New()
	err := DriveReport[*edittest.Node, *edittest.Node](context.Background(), NewSession(m, testRoot), strings.NewReader(doc), fetchContent, rec)
	return rec, err
}
