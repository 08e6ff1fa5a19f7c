package dav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/golang/glog"

	svn "github.com/kfsone/svndelta/lib"
)

// contentSink routes the chunks of a GET body to a window handler. Whether
// the body is an svndiff is settled once, on the first chunk with data.
type contentSink struct {
	contentType string
	handler     svn.WindowHandler
	decided     bool
	decoder     *svn.Decoder
	chunks      int
}

func (c *contentSink) write(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	c.chunks++
	if !c.decided {
		c.decided = true
		if c.contentType == svn.SvndiffContentType {
			c.decoder = svn.NewDecoder(c.handler)
		}
	}
	if c.decoder != nil {
		_, err := c.decoder.Write(chunk)
		return err
	}
	// The read buffer is reused, the window must not share it.
	return c.handler(svn.NewWindow(append([]byte(nil), chunk...)))
}

// close checks an svndiff body ended on a window boundary. It does not send
// the terminating window.
func (c *contentSink) close() error {
	if c.decoder != nil {
		return c.decoder.Close()
	}
	return nil
}

// fetchContents GETs url and feeds the body to handler, as fulltext windows
// or decoded svndiff. deltaBase, if not empty, lets the server send a delta.
func fetchContents(ctx context.Context, transport Transport, url, deltaBase string, handler svn.WindowHandler) error {
	header := http.Header{}
	if deltaBase != "" {
		header.Set(DeltaBaseHeader, deltaBase)
	}

	resp, err := transport.Get(ctx, url, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.Status != http.StatusOK && resp.Status != http.StatusIMUsed {
		return fmt.Errorf("%w: GET %s: status %d", ErrRequestFailed, url, resp.Status)
	}

	sink := &contentSink{contentType: resp.ContentType, handler: handler}
	buf := make([]byte, svn.DefaultFileReadChunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if werr := sink.write(buf[:n]); werr != nil {
				return fmt.Errorf("GET %s: %w", url, werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("GET %s: %w", url, err)
		}
	}
	if err := sink.close(); err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}

	glog.V(svn.LogLevelCalls).Infof("[fetch]%s: %d chunks, svndiff=%v\n", url, sink.chunks, sink.decoder != nil)
	return nil
}

// fetchFile replaces the content of an open file with the resource at url.
// When text deltas are not wanted nothing is fetched, but the handler still
// gets its terminating window.
func fetchFile[D, F any](ctx context.Context, s *Session, editor svn.Editor[D, F], file F, href, relPath string, textDeltas bool) error {
	handler, err := editor.ApplyTextDelta(file)
	if err != nil {
		return fmt.Errorf("apply text delta %s: %w", relPath, err)
	}
	if !textDeltas {
		return handler(nil)
	}

	if href == "" {
		return fmt.Errorf("%w: no version resource to fetch %s from", ErrMalformedResponse, relPath)
	}
	fileURL, err := s.resolve(href)
	if err != nil {
		return err
	}
	base, err := s.deltaBase(relPath)
	if err != nil {
		return err
	}
	if err := fetchContents(ctx, s.Transport, fileURL, base, handler); err != nil {
		return err
	}
	return handler(nil)
}

// fetchProps applies the mapped properties of the resource at href through
// set, in name order.
func fetchProps(ctx context.Context, s *Session, href string, set func(name string, value *string) error) error {
	if href == "" {
		return fmt.Errorf("%w: no version resource to fetch properties from", ErrMalformedResponse)
	}
	propsURL, err := s.resolve(href)
	if err != nil {
		return err
	}
	resource, err := s.Transport.PropFind(ctx, propsURL)
	if err != nil {
		return err
	}
	return setResourceProps(resource, set)
}

// setResourceProps applies the mapped properties of resource through set, in
// name order.
func setResourceProps(resource *Resource, set func(name string, value *string) error) error {
	keys := make([]string, 0, len(resource.Props))
	for key := range resource.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name, ok := svn.MapResourceProp(key)
		if !ok {
			continue
		}
		if err := set(name, svn.PropValue(resource.Props[key])); err != nil {
			return err
		}
	}
	return nil
}

// storeVersionURL records the version resource of resource, if it names one,
// under svn.PropWCVersionURL.
func storeVersionURL(resource *Resource, set func(name string, value *string) error) error {
	href, ok := resource.Props[svn.DAVPropCheckedIn]
	if !ok {
		return nil
	}
	if err := set(svn.PropWCVersionURL, svn.PropValue(href)); err != nil {
		return fmt.Errorf("storing the version resource %s: %w", href, err)
	}
	return nil
}
