package dav

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/golang/glog"

	svn "github.com/kfsone/svndelta/lib"
)

// pendingDir is one entry of the checkout work stack: either a directory
// still to be listed, or a sentinel standing for the close of dir.
type pendingDir[D any] struct {
	sentinel bool
	dir      D

	top    bool
	path   string // relative to the checkout root
	url    string
	parent D
}

// member is one entry of a directory listing.
type member struct {
	name     string
	url      string
	resource *Resource
}

type checkoutDriver[D, F any] struct {
	ctx     context.Context
	session *Session
	editor  svn.Editor[D, F]
	recurse bool
	tag     string
	stack   []pendingDir[D]
}

// Checkout drives editor with the tree at the session URL in revision rev,
// the youngest if rev is not valid, as a series of additions. Each directory
// is listed with a depth-1 PROPFIND and each file fetched whole; every node
// gets its version resource under svn.PropWCVersionURL. Without recurse only
// the files of the top directory are sent.
//
// On any failure the edit is aborted and the first error returned.
func Checkout[D, F any](ctx context.Context, s *Session, rev svn.Revnum, recurse bool, editor svn.Editor[D, F]) (err error) {
	c := &checkoutDriver[D, F]{
		ctx:     ctx,
		session: s,
		editor:  editor,
		recurse: recurse,
		tag:     svn.NewSessionTag("dav-checkout"),
	}

	glog.V(svn.LogLevelSession).Infof("[%s]start %s r%d recurse=%v\n", c.tag, s.URL, rev, recurse)
	defer func() {
		if err != nil {
			if abortErr := editor.AbortEdit(); abortErr != nil {
				glog.Warningf("[%s]abort failed: %v\n", c.tag, abortErr)
			}
			glog.V(svn.LogLevelSession).Infof("[%s]aborted: %v\n", c.tag, err)
			return
		}
		glog.V(svn.LogLevelSession).Infof("[%s]done\n", c.tag)
	}()

	baseline, err := s.GetBaseline(ctx, rev)
	if err != nil {
		return err
	}
	if err := editor.SetTargetRevision(baseline.Revision); err != nil {
		return fmt.Errorf("set target revision: %w", err)
	}
	// There is no base revision to report for a checkout.
	root, err := editor.OpenRoot(svn.InvalidRevnum)
	if err != nil {
		return fmt.Errorf("open root: %w", err)
	}

	c.stack = append(c.stack, pendingDir[D]{top: true, dir: root, url: baseline.Root})
	for len(c.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]

		if item.sentinel {
			c.call("close directory")
			if err := editor.CloseDirectory(item.dir); err != nil {
				return fmt.Errorf("close directory: %w", err)
			}
			continue
		}
		if err := c.checkoutDir(item); err != nil {
			return err
		}
	}

	return editor.CloseEdit()
}

// checkoutDir adds the directory, unless it is the top, sends its
// properties and files, and stacks its subdirectories when recursing.
func (c *checkoutDriver[D, F]) checkoutDir(item pendingDir[D]) error {
	dir := item.dir
	if !item.top {
		c.call("add directory /%s", item.path)
		added, err := c.editor.AddDirectory(svn.Basename(item.path), item.parent, "", svn.InvalidRevnum)
		if err != nil {
			return fmt.Errorf("add directory /%s: %w", item.path, err)
		}
		dir = added
	}
	// The sentinel goes on before any child so the close comes after them.
	c.stack = append(c.stack, pendingDir[D]{sentinel: true, dir: dir})

	listing, err := c.session.Transport.List(c.ctx, item.url)
	if err != nil {
		return fmt.Errorf("listing /%s: %w", item.path, err)
	}
	self, members, err := c.session.splitListing(item.url, listing)
	if err != nil {
		return fmt.Errorf("listing /%s: %w", item.path, err)
	}

	setDirProp := func(name string, value *string) error {
		return c.editor.ChangeDirProp(dir, name, value)
	}
	if err := setResourceProps(self, setDirProp); err != nil {
		return fmt.Errorf("properties of /%s: %w", item.path, err)
	}
	if err := storeVersionURL(self, setDirProp); err != nil {
		return fmt.Errorf("/%s: %w", item.path, err)
	}

	var subdirs []pendingDir[D]
	for _, m := range members {
		childPath := svn.JoinPath(item.path, m.name)
		if !m.resource.IsCollection {
			if err := c.checkoutFile(dir, childPath, m); err != nil {
				return err
			}
			continue
		}
		if !c.recurse {
			c.call("not descending into /%s", childPath)
			continue
		}
		subdirs = append(subdirs, pendingDir[D]{path: childPath, url: m.url, parent: dir})
	}

	// Reverse so the stack pops them in listing order.
	for i := len(subdirs) - 1; i >= 0; i-- {
		c.stack = append(c.stack, subdirs[i])
	}
	return nil
}

func (c *checkoutDriver[D, F]) checkoutFile(dir D, relPath string, m member) error {
	c.call("add file /%s", relPath)
	file, err := c.editor.AddFile(m.name, dir, "", svn.InvalidRevnum)
	if err != nil {
		return fmt.Errorf("add file /%s: %w", relPath, err)
	}

	handler, err := c.editor.ApplyTextDelta(file)
	if err != nil {
		return fmt.Errorf("apply text delta /%s: %w", relPath, err)
	}
	// No delta base: a checkout always gets the whole file.
	if err := fetchContents(c.ctx, c.session.Transport, m.url, "", handler); err != nil {
		return fmt.Errorf("fetch /%s: %w", relPath, err)
	}
	if err := handler(nil); err != nil {
		return fmt.Errorf("fetch /%s: %w", relPath, err)
	}

	setFileProp := func(name string, value *string) error {
		return c.editor.ChangeFileProp(file, name, value)
	}
	if err := setResourceProps(m.resource, setFileProp); err != nil {
		return fmt.Errorf("properties of /%s: %w", relPath, err)
	}
	if err := storeVersionURL(m.resource, setFileProp); err != nil {
		return fmt.Errorf("/%s: %w", relPath, err)
	}

	if err := c.editor.CloseFile(file); err != nil {
		return fmt.Errorf("close file /%s: %w", relPath, err)
	}
	return nil
}

func (c *checkoutDriver[D, F]) call(format string, args ...any) {
	if glog.V(svn.LogLevelCalls) {
		glog.InfoDepth(1, "["+c.tag+"]"+fmt.Sprintf(format, args...))
	}
}

// splitListing separates the listed directory's own resource from its
// members, which come back sorted by name. Every member must sit directly
// below the directory.
func (s *Session) splitListing(dirURL string, listing []*Resource) (*Resource, []member, error) {
	dirPath, err := urlPath(dirURL)
	if err != nil {
		return nil, nil, err
	}

	var self *Resource
	members := make([]member, 0, len(listing))
	for _, resource := range listing {
		memberURL, err := s.resolve(resource.URL)
		if err != nil {
			return nil, nil, err
		}
		memberPath, err := urlPath(memberURL)
		if err != nil {
			return nil, nil, err
		}
		if memberPath == dirPath {
			self = resource
			continue
		}
		name := path.Base(memberPath)
		if path.Dir(memberPath) != dirPath || !svn.IsSingleSegment(name) {
			return nil, nil, fmt.Errorf("%w: %s is not an entry of %s", ErrMalformedResponse, resource.URL, dirURL)
		}
		members = append(members, member{name: name, url: memberURL, resource: resource})
	}
	if self == nil {
		return nil, nil, fmt.Errorf("%w: listing of %s does not include it", ErrMalformedResponse, dirURL)
	}

	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })
	return self, members, nil
}

// urlPath is the unescaped path of u, without a trailing slash.
func urlPath(u string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("%w: bad url %q: %w", ErrMalformedResponse, u, err)
	}
	p := strings.TrimRight(parsed.Path, "/")
	if p == "" {
		p = "/"
	}
	return p, nil
}
