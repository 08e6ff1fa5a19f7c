package svn

import (
	"strings"
)

// entryProps maps the DAV live properties that carry a node's last-change
// information onto the entry properties a working copy records.
var entryProps = map[string]string{
	DAVPropVersionName:        PropEntryCommittedRev,
	DAVPropCreationDate:       PropEntryCommittedDate,
	DAVPropCreatorDisplayName: PropEntryLastAuthor,
}

// MapEntryProp translates a namespace-qualified DAV property name into an
// entry property name.
func MapEntryProp(davName string) (name string, ok bool) {
	name, ok = entryProps[davName]
	return name, ok
}

// MapResourceProp translates a property of a transport resource into the name
// an editor is given, or reports false for properties a working copy must not
// see:
//
//   - svn:custom:NAME is a user property, NAME.
//   - svn:NAME passes through, except server bookkeeping.
//   - DAV entry properties become svn:entry: properties.
//   - anything else is dropped; checked-in is handled by the driver.
func MapResourceProp(key string) (name string, ok bool) {
	switch {
	case strings.HasPrefix(key, PropCustomPrefix):
		return key[len(PropCustomPrefix):], true
	case strings.HasPrefix(key, PropPrefix):
		if key == PropBaselineRelativePath {
			return "", false
		}
		return key, true
	}
	return MapEntryProp(key)
}

// EntryProps synthesizes the three entry properties for a node from its
// last-change information.
func EntryProps(info CommitInfo) Properties {
	return Properties{
		PropEntryCommittedRev:  info.Rev.String(),
		PropEntryCommittedDate: info.Date,
		PropEntryLastAuthor:    info.Author,
	}
}

// PropKind sorts property names by who owns them.
type PropKind int

const (
	PropKindRegular PropKind = iota
	PropKindEntry
	PropKindWC
)

// GetPropKind classifies a property name as seen by an editor.
func GetPropKind(name string) PropKind {
	switch {
	case strings.HasPrefix(name, PropEntryPrefix):
		return PropKindEntry
	case strings.HasPrefix(name, PropWCPrefix):
		return PropKindWC
	}
	return PropKindRegular
}
