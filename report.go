package main

import (
	"os"
	"time"

	yml "gopkg.in/yaml.v3"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/wc"
)

// RunReport is the yaml summary --report writes at the end of a run.
type RunReport struct {
	Command  string     `yaml:"command"`
	URL      string     `yaml:"url,omitempty"`
	Path     string     `yaml:"path,omitempty"`
	Revision svn.Revnum `yaml:"revision"`
	Elapsed  string     `yaml:"elapsed"`
	Error    string     `yaml:"error,omitempty"`

	Added      []string `yaml:"added,omitempty"`
	Updated    []string `yaml:"updated,omitempty"`
	Deleted    []string `yaml:"deleted,omitempty"`
	PropsDirty []string `yaml:"props-modified,omitempty"`

	// Filled in by dump-info.
	Dumps     []DumpSummary     `yaml:"dumps,omitempty"`
	Revisions []RevisionSummary `yaml:"revisions,omitempty"`

	started time.Time
}

// DumpSummary describes one dump file.
type DumpSummary struct {
	Path      string     `yaml:"path"`
	Format    int        `yaml:"format"`
	UUID      string     `yaml:"uuid,omitempty"`
	First     svn.Revnum `yaml:"first"`
	Last      svn.Revnum `yaml:"last"`
	Revisions int        `yaml:"revisions"`
}

// RevisionSummary describes one revision of a dump.
type RevisionSummary struct {
	Number svn.Revnum `yaml:"number"`
	Author string     `yaml:"author,omitempty"`
	Date   string     `yaml:"date,omitempty"`
	Nodes  int        `yaml:"nodes"`
	Bytes  int        `yaml:"bytes"`
}

func newRunReport(command string) *RunReport {
	return &RunReport{
		Command:  command,
		URL:      config.URL,
		Revision: config.Revision,
		started:  time.Now(),
	}
}

func (r *RunReport) record(c change) {
	switch c.Action {
	case wc.ActionAdd:
		r.Added = append(r.Added, c.Path)
	case wc.ActionUpdate:
		r.Updated = append(r.Updated, c.Path)
	case wc.ActionDelete:
		r.Deleted = append(r.Deleted, c.Path)
	}
	if c.Props {
		r.PropsDirty = append(r.PropsDirty, c.Path)
	}
}

// writeReport writes the report to the --report file, if there is one, with
// runErr as the run's outcome. The run's error takes precedence over any
// failure to write.
func writeReport(report *RunReport, runErr error) error {
	if reportFile == "" {
		return runErr
	}

	report.Elapsed = time.Since(report.started).Round(time.Millisecond).String()
	if runErr != nil {
		report.Error = runErr.Error()
	}

	// Open the file for writing.
	f, err := os.Create(reportFile)
	if err != nil {
		if runErr != nil {
			return runErr
		}
		return err
	}
	defer f.Close()

	ymlenc := yml.NewEncoder(f)
	ymlenc.SetIndent(2)
	err = ymlenc.Encode(report)
	if closeErr := ymlenc.Close(); err == nil {
		err = closeErr
	}

	if runErr != nil {
		return runErr
	}
	return err
}
