package wc

import (
	"errors"
	"os"

	svn "github.com/kfsone/svndelta/lib"
)

// Reporter receives the state of a working copy.
type Reporter interface {
	SetPath(path string, rev svn.Revnum) error
	DeletePath(path string) error
}

// Crawl describes the working copy to reporter: the root's revision, every
// entry whose revision differs from its parent's, and every entry that has
// gone missing from disk. What is under a missing directory is not reported.
func (wc *WC) Crawl(reporter Reporter) error {
	entries, err := wc.Entries()
	if err != nil {
		return err
	}

	revs := make(map[string]svn.Revnum, len(entries))
	var missing []string
	for _, entry := range entries {
		revs[entry.Path] = entry.Revision
		if entry.Path == "" {
			if err := reporter.SetPath("", entry.Revision); err != nil {
				return err
			}
			continue
		}
		if underAny(entry.Path, missing) {
			continue
		}

		abs, err := wc.Abs(entry.Path)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(abs); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, entry.Path)
			if err := reporter.DeletePath(entry.Path); err != nil {
				return err
			}
			continue
		}

		if parentRev, ok := revs[svn.Dirname(entry.Path)]; !ok || parentRev != entry.Revision {
			if err := reporter.SetPath(entry.Path, entry.Revision); err != nil {
				return err
			}
		}
	}
	return nil
}

func underAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if svn.MatchPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}
