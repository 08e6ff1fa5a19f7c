package svn

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
)

// Verbosity levels used by the library.
//
//	1: edit sessions starting and finishing
//	2: every editor call a driver makes, every fetch
//	3: dump parsing detail
const (
	LogLevelSession glog.Level = 1
	LogLevelCalls   glog.Level = 2
	LogLevelDump    glog.Level = 3
)

// log is for dump parsing chatter, it escapes line breaks so each record
// stays on one line.
func log(format string, args ...any) {
	if glog.V(LogLevelDump) {
		s := fmt.Sprintf(format, args...)
		s = strings.ReplaceAll(s, "\r", "<cr>")
		s = strings.ReplaceAll(s, "\n", "<lf>")
		glog.InfoDepth(1, s)
	}
}

// NewSessionTag returns a short unique tag to prefix the log lines of one
// edit session.
func NewSessionTag(kind string) string {
	id := ulid.Make().String()
	return kind + ":" + id[len(id)-8:]
}
