package dav

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/golang/glog"

	svn "github.com/kfsone/svndelta/lib"
)

// DeltaBaseHeader names the version resource the client already holds, so
// the server can answer a GET with an svndiff against it.
const DeltaBaseHeader = "X-SVN-VR-Base"

// Response is the part of a GET reply the fetcher looks at. Body is read in
// chunks and must be closed.
type Response struct {
	Status      int
	ContentType string
	Body        io.ReadCloser
}

// Resource is one response of a PROPFIND. Props are keyed by namespace and
// local name concatenated, e.g. "svn:custom:color" or "DAV:version-name".
type Resource struct {
	URL          string
	IsCollection bool
	Props        map[string]string
}

// Transport performs the requests the drivers need.
type Transport interface {
	Get(ctx context.Context, url string, header http.Header) (*Response, error)
	Report(ctx context.Context, url string, body io.Reader) (io.ReadCloser, error)
	PropFind(ctx context.Context, url string) (*Resource, error)
	// PropFindLabel is PropFind of the version of url carrying label, a
	// revision number.
	PropFindLabel(ctx context.Context, url, label string) (*Resource, error)
	// List is a depth-1 PROPFIND: the collection at url and its members.
	List(ctx context.Context, url string) ([]*Resource, error)
}

// HTTPTransport is a Transport over net/http.
type HTTPTransport struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPTransport returns a transport using client, or http.DefaultClient
// if client is nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{Client: client, UserAgent: "svndelta"}
}

func (t *HTTPTransport) do(ctx context.Context, method, url string, header http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	glog.V(svn.LogLevelCalls).Infof("[http]%s %s\n", method, url)
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}

// Get issues a GET. The status is not checked; that is the caller's call.
func (t *HTTPTransport) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	resp, err := t.do(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: mediaType(resp.Header.Get("Content-Type")),
		Body:        resp.Body,
	}, nil
}

// Report sends a REPORT request and returns the streamed response body.
func (t *HTTPTransport) Report(ctx context.Context, url string, body io.Reader) (io.ReadCloser, error) {
	header := http.Header{"Content-Type": {`text/xml; charset="utf-8"`}}
	resp, err := t.do(ctx, "REPORT", url, header, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return nil, fmt.Errorf("%w: REPORT %s: %s", ErrRequestFailed, url, resp.Status)
	}
	return resp.Body, nil
}

const propfindAllProps = `<?xml version="1.0" encoding="utf-8"?>
<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

// PropFind fetches every property of a single resource.
func (t *HTTPTransport) PropFind(ctx context.Context, url string) (*Resource, error) {
	return t.propFindOne(ctx, url, "")
}

func (t *HTTPTransport) PropFindLabel(ctx context.Context, url, label string) (*Resource, error) {
	return t.propFindOne(ctx, url, label)
}

func (t *HTTPTransport) List(ctx context.Context, url string) ([]*Resource, error) {
	return t.propFind(ctx, url, "1", "")
}

func (t *HTTPTransport) propFindOne(ctx context.Context, url, label string) (*Resource, error) {
	resources, err := t.propFind(ctx, url, "0", label)
	if err != nil {
		return nil, err
	}
	return resources[0], nil
}

func (t *HTTPTransport) propFind(ctx context.Context, url, depth, label string) ([]*Resource, error) {
	header := http.Header{
		"Content-Type": {`text/xml; charset="utf-8"`},
		"Depth":        {depth},
	}
	if label != "" {
		header.Set("Label", label)
	}
	resp, err := t.do(ctx, "PROPFIND", url, header, strings.NewReader(propfindAllProps))
	if err != nil {
		return nil, err
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusMultiStatus {
		return nil, fmt.Errorf("%w: PROPFIND %s: %s", ErrRequestFailed, url, resp.Status)
	}
	resources, err := parseMultistatus(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("PROPFIND %s: %w", url, err)
	}
	return resources, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// mediaType reduces a Content-Type header to its type/subtype.
func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return mt
}
