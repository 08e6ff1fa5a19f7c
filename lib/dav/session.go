package dav

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	svn "github.com/kfsone/svndelta/lib"
)

// Session ties a transport to the repository URL a working copy is rooted at.
type Session struct {
	Transport Transport
	URL       string

	// BaseURL looks up the version resource the working copy holds for a
	// path relative to its root. An empty result means there is no base and
	// the server sends fulltext. May be nil.
	BaseURL func(relPath string) (string, error)
}

// NewSession returns a session for the repository URL rootURL.
func NewSession(transport Transport, rootURL string) *Session {
	return &Session{Transport: transport, URL: strings.TrimRight(rootURL, "/")}
}

func (s *Session) deltaBase(relPath string) (string, error) {
	if s.BaseURL == nil {
		return "", nil
	}
	base, err := s.BaseURL(relPath)
	if err != nil {
		return "", fmt.Errorf("delta base for %s: %w", relPath, err)
	}
	return base, nil
}

// resolve turns an href from a response, typically an absolute path, into a
// URL relative to the session.
func (s *Session) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: bad href %q: %w", ErrMalformedResponse, href, err)
	}
	if ref.IsAbs() {
		return href, nil
	}
	base, err := url.Parse(s.URL + "/")
	if err != nil {
		return "", fmt.Errorf("session url %q: %w", s.URL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// pathURL appends a repository-relative path to the session URL.
func (s *Session) pathURL(path string) string {
	u := s.URL
	for _, name := range strings.Split(svn.CleanPath(path), "/") {
		if name != "" {
			u = svn.JoinURL(u, url.PathEscape(name))
		}
	}
	return u
}

// GetFile writes the head content of the file at path, relative to the
// session URL, to w and returns its properties: user properties under their
// own names, entry properties, and the version resource under
// svn.PropWCVersionURL.
func (s *Session) GetFile(ctx context.Context, path string, w io.Writer) (svn.Properties, error) {
	fileURL := s.pathURL(path)

	// No delta base: the result must be the whole file.
	handler := svn.ApplyHandler(nil, w, nil)
	if err := fetchContents(ctx, s.Transport, fileURL, "", handler); err != nil {
		return nil, err
	}
	if err := handler(nil); err != nil {
		return nil, err
	}

	resource, err := s.Transport.PropFind(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	if resource.IsCollection {
		return nil, fmt.Errorf("%w: %s", svn.ErrNotFile, fileURL)
	}

	props := svn.NewProperties()
	collect := func(name string, value *string) error {
		props[name] = *value
		return nil
	}
	if err := setResourceProps(resource, collect); err != nil {
		return nil, err
	}
	if err := storeVersionURL(resource, collect); err != nil {
		return nil, err
	}
	return props, nil
}

// Baseline is one revision of the repository tree as the server publishes
// it.
type Baseline struct {
	Revision svn.Revnum
	// Root is the URL of the session's directory inside the revision's
	// baseline collection.
	Root string
}

// GetBaseline finds the baseline of rev, or of the youngest revision when rev
// is not valid. The session URL must be a directory.
//
// The public resource names its version-controlled configuration. A label
// on that selects a revision's baseline; without one its checked-in is the
// youngest.
func (s *Session) GetBaseline(ctx context.Context, rev svn.Revnum) (*Baseline, error) {
	public, err := s.Transport.PropFind(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	if !public.IsCollection {
		return nil, fmt.Errorf("%w: %s", svn.ErrNotDirectory, s.URL)
	}
	vccURL, err := s.hrefProp(public, svn.DAVPropVersionControlledConfiguration)
	if err != nil {
		return nil, err
	}

	var baseline *Resource
	if rev.Valid() {
		if baseline, err = s.Transport.PropFindLabel(ctx, vccURL, rev.String()); err != nil {
			return nil, err
		}
	} else {
		vcc, err := s.Transport.PropFind(ctx, vccURL)
		if err != nil {
			return nil, err
		}
		baselineURL, err := s.hrefProp(vcc, svn.DAVPropCheckedIn)
		if err != nil {
			return nil, err
		}
		if baseline, err = s.Transport.PropFind(ctx, baselineURL); err != nil {
			return nil, err
		}
	}

	name, ok := baseline.Props[svn.DAVPropVersionName]
	if !ok {
		return nil, fmt.Errorf("%w: baseline %s has no %s", ErrMalformedResponse, baseline.URL, svn.DAVPropVersionName)
	}
	got, err := svn.ParseRevnum(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("%w: baseline %s: %w", ErrMalformedResponse, baseline.URL, err)
	}
	if rev.Valid() && got != rev {
		return nil, fmt.Errorf("%w: asked for the baseline of r%d, got r%d", ErrMalformedResponse, rev, got)
	}

	collection, err := s.hrefProp(baseline, svn.DAVPropBaselineCollection)
	if err != nil {
		return nil, err
	}
	root := strings.TrimRight(collection, "/")
	for _, segment := range strings.Split(svn.CleanPath(public.Props[svn.PropBaselineRelativePath]), "/") {
		if segment != "" {
			root = svn.JoinURL(root, url.PathEscape(segment))
		}
	}
	return &Baseline{Revision: got, Root: root}, nil
}

// LatestRevnum returns the youngest revision of the repository.
func (s *Session) LatestRevnum(ctx context.Context) (svn.Revnum, error) {
	baseline, err := s.GetBaseline(ctx, svn.InvalidRevnum)
	if err != nil {
		return svn.InvalidRevnum, err
	}
	return baseline.Revision, nil
}

// hrefProp resolves the href held in one of resource's properties.
func (s *Session) hrefProp(resource *Resource, key string) (string, error) {
	href := resource.Props[key]
	if href == "" {
		return "", fmt.Errorf("%w: %s has no %s", ErrMalformedResponse, resource.URL, key)
	}
	return s.resolve(href)
}
