package wc

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	svn "github.com/kfsone/svndelta/lib"
)

const (
	// AdminDir holds the metadata database and scratch files of a working
	// copy, at its top.
	AdminDir = ".svndelta"
	dbName   = "entries.db"
	tmpDir   = "tmp"
)

var (
	ErrNotWorkingCopy = errors.New("not a working copy")
	ErrNotVersioned   = errors.New("path is not versioned")
	ErrOutsideWC      = errors.New("path is outside the working copy")
)

// Entry is what the working copy records about one versioned node.
type Entry struct {
	Path          string
	Kind          svn.NodeKind
	Revision      svn.Revnum
	URL           string
	CommittedRev  svn.Revnum
	CommittedDate string
	LastAuthor    string
	PropMods      bool
}

// querier is the part of *sql.DB and *sql.Tx the store uses.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// WC is a working copy: a directory tree of files plus an sqlite database of
// entries, user properties and working-copy properties.
type WC struct {
	Root string
	db   *sql.DB
}

// Create initializes an empty working copy at root for the repository URL
// url. The root directory is created if needed.
func Create(root, url string) (*WC, error) {
	if err := os.MkdirAll(filepath.Join(root, AdminDir, tmpDir), 0o755); err != nil {
		return nil, err
	}
	wc, err := open(root)
	if err != nil {
		return nil, err
	}
	if _, err := wc.db.Exec(`
		INSERT INTO entries (path, kind, revision, url) VALUES ('', ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET url = excluded.url
	`, svn.NodeKindDir.String(), int64(svn.InvalidRevnum), url); err != nil {
		wc.Close()
		return nil, err
	}
	return wc, nil
}

// Open opens an existing working copy.
func Open(root string) (*WC, error) {
	if _, err := os.Stat(filepath.Join(root, AdminDir, dbName)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotWorkingCopy, root)
	}
	return open(root)
}

func open(root string) (*WC, error) {
	db, err := sql.Open("sqlite3", filepath.Join(root, AdminDir, dbName))
	if err != nil {
		return nil, err
	}
	wc := &WC{Root: root, db: db}
	if err := wc.init(); err != nil {
		db.Close()
		return nil, err
	}
	return wc, nil
}

func (wc *WC) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		path TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		revision INTEGER NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		committed_rev INTEGER NOT NULL DEFAULT -1,
		committed_date TEXT NOT NULL DEFAULT '',
		last_author TEXT NOT NULL DEFAULT '',
		prop_mods BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS props (
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		value BLOB NOT NULL,
		PRIMARY KEY (path, name)
	);

	CREATE TABLE IF NOT EXISTS wcprops (
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		value BLOB NOT NULL,
		PRIMARY KEY (path, name)
	);
	`
	_, err := wc.db.Exec(schema)
	return err
}

func (wc *WC) Close() error {
	return wc.db.Close()
}

// Abs returns the filesystem location of a working-copy path. Paths that
// would leave Root, or land in the admin directory, are refused.
func (wc *WC) Abs(path string) (string, error) {
	if path == "" {
		return wc.Root, nil
	}
	local := filepath.FromSlash(path)
	if !filepath.IsLocal(local) || strings.ContainsRune(path, '\\') {
		return "", fmt.Errorf("%w: %s", ErrOutsideWC, path)
	}
	if first, _, _ := strings.Cut(path, "/"); first == AdminDir {
		return "", fmt.Errorf("%w: %s is in the admin directory", ErrOutsideWC, path)
	}
	return filepath.Join(wc.Root, local), nil
}

const entryColumns = `path, kind, revision, url, committed_rev, committed_date, last_author, prop_mods`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		entry       Entry
		kind        string
		rev, comRev int64
	)
	if err := row.Scan(&entry.Path, &kind, &rev, &entry.URL, &comRev, &entry.CommittedDate, &entry.LastAuthor, &entry.PropMods); err != nil {
		return nil, err
	}
	var err error
	if entry.Kind, err = svn.GetNodeKind(kind); err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.Path, err)
	}
	entry.Revision, entry.CommittedRev = svn.Revnum(rev), svn.Revnum(comRev)
	return &entry, nil
}

func getEntry(q querier, path string) (*Entry, error) {
	entry, err := scanEntry(q.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotVersioned, path)
	}
	return entry, err
}

// Entry returns the record for path.
func (wc *WC) Entry(path string) (*Entry, error) {
	return getEntry(wc.db, svn.CleanPath(path))
}

// Entries returns every entry, sorted by path so parents come first.
func (wc *WC) Entries() ([]*Entry, error) {
	rows, err := wc.db.Query(`SELECT ` + entryColumns + ` FROM entries ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func readProps(q querier, table, path string) (svn.Properties, error) {
	rows, err := q.Query(`SELECT name, value FROM `+table+` WHERE path = ?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	props := svn.NewProperties()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		props[name] = value
	}
	return props, rows.Err()
}

// Props returns the user properties of path.
func (wc *WC) Props(path string) (svn.Properties, error) {
	return readProps(wc.db, "props", svn.CleanPath(path))
}

// WCProps returns the working-copy properties of path.
func (wc *WC) WCProps(path string) (svn.Properties, error) {
	return readProps(wc.db, "wcprops", svn.CleanPath(path))
}

func baseURL(q querier, path string) (string, error) {
	var value string
	err := q.QueryRow(`SELECT value FROM wcprops WHERE path = ? AND name = ?`, path, svn.PropWCVersionURL).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// BaseURL returns the version resource recorded for path, or "" if there is
// none.
func (wc *WC) BaseURL(path string) (string, error) {
	return baseURL(wc.db, svn.CleanPath(path))
}

// Relocate rewrites the URL of every entry under the URL prefix from to
// begin with to instead.
func (wc *WC) Relocate(from, to string) error {
	entries, err := wc.Entries()
	if err != nil {
		return err
	}
	tx, err := wc.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, entry := range entries {
		if !svn.MatchPathPrefix(entry.URL, from) {
			continue
		}
		if _, err := tx.Exec(`UPDATE entries SET url = ? WHERE path = ?`, svn.ReplacePathPrefix(entry.URL, from, to), entry.Path); err != nil {
			return err
		}
	}
	return tx.Commit()
}
