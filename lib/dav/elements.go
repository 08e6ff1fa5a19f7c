package dav

import (
	"encoding/xml"

	svn "github.com/kfsone/svndelta/lib"
)

// SVNNamespace is the XML namespace of the REPORT vocabulary.
const SVNNamespace = "svn:"

type element int

const (
	elemRoot element = iota
	elemUpdateReport
	elemTargetRevision
	elemOpenDirectory
	elemAddDirectory
	elemOpenFile
	elemAddFile
	elemDeleteEntry
	elemFetchProps
	elemRemoveProp
	elemFetchFile
	elemProp
	elemVersionName
	elemCreationDate
	elemCreatorDisplayName
	elemCheckedIn
	elemHref
	elemUnknown
)

var elementLabels = [...]string{
	elemRoot:               "(document)",
	elemUpdateReport:       "update-report",
	elemTargetRevision:     "target-revision",
	elemOpenDirectory:      "open-directory",
	elemAddDirectory:       "add-directory",
	elemOpenFile:           "open-file",
	elemAddFile:            "add-file",
	elemDeleteEntry:        "delete-entry",
	elemFetchProps:         "fetch-props",
	elemRemoveProp:         "remove-prop",
	elemFetchFile:          "fetch-file",
	elemProp:               "prop",
	elemVersionName:        "version-name",
	elemCreationDate:       "creationdate",
	elemCreatorDisplayName: "creator-displayname",
	elemCheckedIn:          "checked-in",
	elemHref:               "href",
	elemUnknown:            "(unknown)",
}

func (e element) String() string {
	if e >= 0 && int(e) < len(elementLabels) {
		return elementLabels[e]
	}
	return elementLabels[elemUnknown]
}

// elements maps the qualified names on the wire to element types. The
// replace-* names are older spellings of open-*.
var elements = map[xml.Name]element{
	{Space: SVNNamespace, Local: "update-report"}:     elemUpdateReport,
	{Space: SVNNamespace, Local: "target-revision"}:   elemTargetRevision,
	{Space: SVNNamespace, Local: "open-directory"}:    elemOpenDirectory,
	{Space: SVNNamespace, Local: "replace-directory"}: elemOpenDirectory,
	{Space: SVNNamespace, Local: "add-directory"}:     elemAddDirectory,
	{Space: SVNNamespace, Local: "open-file"}:         elemOpenFile,
	{Space: SVNNamespace, Local: "replace-file"}:      elemOpenFile,
	{Space: SVNNamespace, Local: "add-file"}:          elemAddFile,
	{Space: SVNNamespace, Local: "delete-entry"}:      elemDeleteEntry,
	{Space: SVNNamespace, Local: "fetch-props"}:       elemFetchProps,
	{Space: SVNNamespace, Local: "remove-prop"}:       elemRemoveProp,
	{Space: SVNNamespace, Local: "fetch-file"}:        elemFetchFile,
	{Space: SVNNamespace, Local: "prop"}:              elemProp,

	{Space: svn.DAVNamespace, Local: "version-name"}:        elemVersionName,
	{Space: svn.DAVNamespace, Local: "creationdate"}:        elemCreationDate,
	{Space: svn.DAVNamespace, Local: "creator-displayname"}: elemCreatorDisplayName,
	{Space: svn.DAVNamespace, Local: "checked-in"}:          elemCheckedIn,
	{Space: svn.DAVNamespace, Local: "href"}:                elemHref,
}

// allowedChildren is the whole REPORT grammar: the elements each element may
// contain. Anything absent, including every child of a leaf, is an error.
var allowedChildren = map[element][]element{
	elemRoot:         {elemUpdateReport},
	elemUpdateReport: {elemTargetRevision, elemOpenDirectory},
	elemOpenDirectory: {
		elemOpenDirectory, elemAddDirectory, elemOpenFile, elemAddFile,
		elemFetchProps, elemRemoveProp, elemDeleteEntry, elemProp, elemCheckedIn,
	},
	elemAddDirectory: {elemAddDirectory, elemAddFile, elemProp, elemCheckedIn},
	elemOpenFile:     {elemCheckedIn, elemFetchFile, elemProp, elemFetchProps, elemRemoveProp},
	elemAddFile:      {elemCheckedIn, elemProp},
	elemCheckedIn:    {elemHref},
	elemProp:         {elemVersionName, elemCreationDate, elemCreatorDisplayName, elemRemoveProp},
}

func lookupElement(name xml.Name) element {
	if elem, ok := elements[name]; ok {
		return elem
	}
	return elemUnknown
}

func allowed(parent, child element) bool {
	for _, elem := range allowedChildren[parent] {
		if elem == child {
			return true
		}
	}
	return false
}

// collectsText reports whether the element's character data is used.
func (e element) collectsText() bool {
	switch e {
	case elemHref, elemVersionName, elemCreationDate, elemCreatorDisplayName:
		return true
	}
	return false
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + name.Local
}
