package main

import (
	"fmt"
	"path/filepath"

	svn "github.com/kfsone/svndelta/lib"
)

// dumpFilenames expands the dump file glob into the files to read, in name
// order, which for split dumps is revision order.
func dumpFilenames(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("missing --dump filename")
	}
	filenames, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid dump file/glob: %s: %w", pattern, err)
	}
	if len(filenames) == 0 {
		return nil, fmt.Errorf("no matching dump files found: %s", pattern)
	}
	return filenames, nil
}

// loadRepos builds a repository from the configured dump files.
func loadRepos() (*svn.Repos, error) {
	filenames, err := dumpFilenames(config.Dump)
	if err != nil {
		return nil, err
	}

	repos := svn.NewRepos()
	Info("Loading %d dump files", len(filenames))
	for _, filename := range filenames {
		Log("Loading dump file: %s", filename)
		if err := repos.LoadDumpFile(filename); err != nil {
			repos.Close()
			return nil, err
		}
	}
	Info("Loaded %d revisions", repos.Youngest()+1)
	return repos, nil
}

// requireURL fails unless a repository URL was configured.
func requireURL() (string, error) {
	if config.URL == "" {
		return "", fmt.Errorf("missing --url")
	}
	return config.URL, nil
}
