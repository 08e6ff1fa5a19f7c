package dav

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"

	svn "github.com/kfsone/svndelta/lib"
)

// dirFrame is one open directory of a REPORT drive.
type dirFrame[D any] struct {
	handle     D
	path       string // relative to the report root
	fetchProps bool
	vsnURL     string // first version resource seen for the directory
}

// reportDriver holds everything one REPORT drive needs; nothing outlives it.
type reportDriver[D, F any] struct {
	ctx          context.Context
	session      *Session
	editor       svn.Editor[D, F]
	fetchContent bool
	tag          string

	elems []element
	dirs  []dirFrame[D]

	file           F
	fileOpen       bool
	filePath       string
	fileFetchProps bool

	href       string
	text       strings.Builder
	rootOpened bool
	finished   bool
}

// DriveReport parses a REPORT response and drives editor with the tree delta
// it describes, fetching content and properties from the session's
// transport as the response asks for them. Without fetchContent nothing is
// fetched: files get an empty delta and property changes are flagged with
// svn.PropDirtyMarker.
//
// A clean parse ends with CloseEdit. Anything else, including a response
// that breaks the REPORT grammar, aborts the edit and returns the first
// error; no editor call is made after the failure.
func DriveReport[D, F any](ctx context.Context, s *Session, body io.Reader, fetchContent bool, editor svn.Editor[D, F]) (err error) {
	r := &reportDriver[D, F]{
		ctx:          ctx,
		session:      s,
		editor:       editor,
		fetchContent: fetchContent,
		tag:          svn.NewSessionTag("report"),
		elems:        []element{elemRoot},
	}

	glog.V(svn.LogLevelSession).Infof("[%s]start %s fetch=%v\n", r.tag, s.URL, fetchContent)
	defer func() {
		if err != nil {
			if abortErr := editor.AbortEdit(); abortErr != nil {
				glog.Warningf("[%s]abort failed: %v\n", r.tag, abortErr)
			}
			glog.V(svn.LogLevelSession).Infof("[%s]aborted: %v\n", r.tag, err)
			return
		}
		glog.V(svn.LogLevelSession).Infof("[%s]done\n", r.tag)
	}()

	if err := r.parse(body); err != nil {
		return err
	}
	return editor.CloseEdit()
}

func (r *reportDriver[D, F]) parse(body io.Reader) error {
	decoder := xml.NewDecoder(body)
	for {
		if err := r.ctx.Err(); err != nil {
			return err
		}

		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if err := r.start(t); err != nil {
				return err
			}
		case xml.EndElement:
			if err := r.end(); err != nil {
				return err
			}
		case xml.CharData:
			if r.top().collectsText() {
				r.text.Write(t)
			}
		}
	}

	if len(r.elems) != 1 || !r.finished {
		return fmt.Errorf("%w: response ended early", ErrMalformedResponse)
	}
	return nil
}

func (r *reportDriver[D, F]) top() element {
	return r.elems[len(r.elems)-1]
}

func (r *reportDriver[D, F]) dir() *dirFrame[D] {
	return &r.dirs[len(r.dirs)-1]
}

func (r *reportDriver[D, F]) start(t xml.StartElement) error {
	elem := lookupElement(t.Name)
	if parent := r.top(); !allowed(parent, elem) {
		return &GrammarError{Parent: parent.String(), Child: qualifiedName(t.Name)}
	}
	r.elems = append(r.elems, elem)
	r.text.Reset()

	switch elem {
	case elemTargetRevision:
		rev, err := revAttr(t, "rev")
		if err != nil {
			return err
		}
		if r.rootOpened {
			return fmt.Errorf("%w: target revision after the root was opened", ErrMalformedResponse)
		}
		r.call("set target revision r%d", rev)
		return r.editor.SetTargetRevision(rev)

	case elemOpenDirectory:
		return r.openDirectory(t)

	case elemAddDirectory:
		name, err := entryName(t)
		if err != nil {
			return err
		}
		fromPath, fromRev, err := copyFromAttrs(t)
		if err != nil {
			return err
		}
		parent := r.dir()
		path := svn.JoinPath(parent.path, name)
		r.call("add directory /%s", path)
		handle, err := r.editor.AddDirectory(name, parent.handle, fromPath, fromRev)
		if err != nil {
			return fmt.Errorf("add directory %s: %w", path, err)
		}
		r.dirs = append(r.dirs, dirFrame[D]{handle: handle, path: path, fetchProps: true})

	case elemOpenFile:
		name, err := entryName(t)
		if err != nil {
			return err
		}
		rev, err := revAttr(t, "rev")
		if err != nil {
			return err
		}
		parent := r.dir()
		path := svn.JoinPath(parent.path, name)
		r.call("open file /%s@%d", path, rev)
		file, err := r.editor.OpenFile(name, parent.handle, rev)
		if err != nil {
			return fmt.Errorf("open file %s: %w", path, err)
		}
		r.setFile(file, path, false)

	case elemAddFile:
		name, err := entryName(t)
		if err != nil {
			return err
		}
		fromPath, fromRev, err := copyFromAttrs(t)
		if err != nil {
			return err
		}
		parent := r.dir()
		path := svn.JoinPath(parent.path, name)
		r.call("add file /%s", path)
		file, err := r.editor.AddFile(name, parent.handle, fromPath, fromRev)
		if err != nil {
			return fmt.Errorf("add file %s: %w", path, err)
		}
		r.setFile(file, path, true)

	case elemRemoveProp:
		name, err := requiredAttr(t, "name")
		if err != nil {
			return err
		}
		return r.changeProp(name, nil)

	case elemFetchProps:
		if !r.fetchContent {
			// Status only: say there is a change without fetching it.
			return r.changeProp(svn.PropDirtyMarker, nil)
		}
		if r.fileOpen {
			r.fileFetchProps = true
		} else {
			r.dir().fetchProps = true
		}

	case elemFetchFile:
		return r.fetchFile()

	case elemDeleteEntry:
		name, err := entryName(t)
		if err != nil {
			return err
		}
		dir := r.dir()
		r.call("delete /%s", svn.JoinPath(dir.path, name))
		if err := r.editor.DeleteEntry(name, svn.InvalidRevnum, dir.handle); err != nil {
			return fmt.Errorf("delete %s: %w", svn.JoinPath(dir.path, name), err)
		}
	}

	return nil
}

func (r *reportDriver[D, F]) openDirectory(t xml.StartElement) error {
	rev, err := revAttr(t, "rev")
	if err != nil {
		return err
	}

	// The outermost directory is the root of the edit.
	if len(r.dirs) == 0 {
		if r.rootOpened {
			return fmt.Errorf("%w: second root directory", ErrMalformedResponse)
		}
		r.rootOpened = true
		r.call("open root @%d", rev)
		handle, err := r.editor.OpenRoot(rev)
		if err != nil {
			return fmt.Errorf("open root: %w", err)
		}
		r.dirs = append(r.dirs, dirFrame[D]{handle: handle})
		return nil
	}

	name, err := entryName(t)
	if err != nil {
		return err
	}
	parent := r.dir()
	path := svn.JoinPath(parent.path, name)
	r.call("open directory /%s@%d", path, rev)
	handle, err := r.editor.OpenDirectory(name, parent.handle, rev)
	if err != nil {
		return fmt.Errorf("open directory %s: %w", path, err)
	}
	r.dirs = append(r.dirs, dirFrame[D]{handle: handle, path: path})
	return nil
}

// setFile makes file the open file. A file has no version resource until its
// own checked-in element names one.
func (r *reportDriver[D, F]) setFile(file F, path string, fetchProps bool) {
	r.file, r.fileOpen, r.filePath, r.fileFetchProps = file, true, path, fetchProps
	r.href = ""
}

func (r *reportDriver[D, F]) end() error {
	elem := r.top()
	text := r.text.String()
	r.elems = r.elems[:len(r.elems)-1]
	r.text.Reset()

	switch elem {
	case elemUpdateReport:
		if !r.rootOpened {
			return fmt.Errorf("%w: no root directory", ErrMalformedResponse)
		}
		r.finished = true

	case elemOpenDirectory, elemAddDirectory:
		dir := r.dir()
		if err := r.nodeProps(); err != nil {
			return err
		}
		r.call("close directory /%s", dir.path)
		if err := r.editor.CloseDirectory(dir.handle); err != nil {
			return fmt.Errorf("close directory %s: %w", dir.path, err)
		}
		r.dirs = r.dirs[:len(r.dirs)-1]

	case elemAddFile:
		// By now checked-in has given us the resource to fetch.
		if err := r.fetchFile(); err != nil {
			return err
		}
		fallthrough

	case elemOpenFile:
		if err := r.nodeProps(); err != nil {
			return err
		}
		r.call("close file /%s", r.filePath)
		if err := r.editor.CloseFile(r.file); err != nil {
			return fmt.Errorf("close file %s: %w", r.filePath, err)
		}
		var none F
		r.file, r.fileOpen, r.filePath, r.fileFetchProps = none, false, "", false

	case elemHref:
		if !r.fetchContent {
			break
		}
		r.href = strings.TrimSpace(text)
		if !r.fileOpen {
			if dir := r.dir(); dir.vsnURL == "" {
				dir.vsnURL = r.href
			}
		}
		return r.changeProp(svn.PropWCVersionURL, svn.PropValue(r.href))

	case elemVersionName, elemCreationDate, elemCreatorDisplayName:
		name, _ := svn.MapEntryProp(svn.DAVNamespace + elem.String())
		return r.changeProp(name, svn.PropValue(text))
	}

	return nil
}

// changeProp sets a property on the open file, or the current directory when
// no file is open.
func (r *reportDriver[D, F]) changeProp(name string, value *string) error {
	if r.fileOpen {
		r.call("file prop /%s %s", r.filePath, name)
		if err := r.editor.ChangeFileProp(r.file, name, value); err != nil {
			return fmt.Errorf("set %s on %s: %w", name, r.filePath, err)
		}
		return nil
	}
	dir := r.dir()
	r.call("dir prop /%s %s", dir.path, name)
	if err := r.editor.ChangeDirProp(dir.handle, name, value); err != nil {
		return fmt.Errorf("set %s on %s: %w", name, dir.path, err)
	}
	return nil
}

func (r *reportDriver[D, F]) fetchFile() error {
	r.call("fetch /%s from %s", r.filePath, r.href)
	if err := fetchFile(r.ctx, r.session, r.editor, r.file, r.href, r.filePath, r.fetchContent); err != nil {
		return fmt.Errorf("fetch %s: %w", r.filePath, err)
	}
	return nil
}

// nodeProps fetches the properties of the open file, or else the current
// directory, if the response flagged them.
func (r *reportDriver[D, F]) nodeProps() error {
	if !r.fetchContent {
		return nil
	}

	if r.fileOpen {
		if !r.fileFetchProps {
			return nil
		}
		r.call("fetch props /%s", r.filePath)
		return fetchProps(r.ctx, r.session, r.href, func(name string, value *string) error {
			return r.editor.ChangeFileProp(r.file, name, value)
		})
	}

	dir := r.dir()
	if !dir.fetchProps {
		return nil
	}
	r.call("fetch props /%s", dir.path)
	return fetchProps(r.ctx, r.session, dir.vsnURL, func(name string, value *string) error {
		return r.editor.ChangeDirProp(dir.handle, name, value)
	})
}

func (r *reportDriver[D, F]) call(format string, args ...any) {
	if glog.V(svn.LogLevelCalls) {
		glog.InfoDepth(1, "["+r.tag+"]"+fmt.Sprintf(format, args...))
	}
}

func attr(t xml.StartElement, name string) (string, bool) {
	for _, a := range t.Attr {
		if a.Name.Local == name && (a.Name.Space == "" || a.Name.Space == SVNNamespace) {
			return a.Value, true
		}
	}
	return "", false
}

func requiredAttr(t xml.StartElement, name string) (string, error) {
	value, ok := attr(t, name)
	if !ok {
		return "", fmt.Errorf("%w: <%s %s=...>", ErrMissingAttribute, t.Name.Local, name)
	}
	return value, nil
}

// entryName reads the name of a directory entry, which must be a single path
// segment.
func entryName(t xml.StartElement) (string, error) {
	name, err := requiredAttr(t, "name")
	if err != nil {
		return "", err
	}
	if !svn.IsSingleSegment(name) {
		return "", fmt.Errorf("%w: <%s name=%q> is not a single path segment", ErrMalformedResponse, t.Name.Local, name)
	}
	return name, nil
}

func revAttr(t xml.StartElement, name string) (svn.Revnum, error) {
	value, err := requiredAttr(t, name)
	if err != nil {
		return svn.InvalidRevnum, err
	}
	rev, err := svn.ParseRevnum(value)
	if err != nil {
		return svn.InvalidRevnum, fmt.Errorf("%w: <%s %s=%q>: %w", ErrMalformedResponse, t.Name.Local, name, value, err)
	}
	return rev, nil
}

// copyFromAttrs reads the optional copy source of an add; a path without a
// revision is an error.
func copyFromAttrs(t xml.StartElement) (string, svn.Revnum, error) {
	path, ok := attr(t, "copyfrom-path")
	if !ok {
		return "", svn.InvalidRevnum, nil
	}
	rev, err := revAttr(t, "copyfrom-rev")
	if err != nil {
		return "", svn.InvalidRevnum, err
	}
	return path, rev, nil
}

// IsGrammarError reports whether err came from a response that broke the
// REPORT grammar.
func IsGrammarError(err error) bool {
	var grammarErr *GrammarError
	return errors.As(err, &grammarErr)
}
