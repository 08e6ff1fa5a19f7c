package svn

const (
	Newline                  = "\n"
	VersionStringHeader      = "SVN-fs-dump-format-version"
	UUIDHeader               = "UUID"
	RevisionNumberHeader     = "Revision-number"
	NodePathHeader           = "Node-path"
	NodeKindHeader           = "Node-kind"
	NodeActionHeader         = "Node-action"
	NodeCopyfromRevHeader    = "Node-copyfrom-rev"
	NodeCopyfromPathHeader   = "Node-copyfrom-path"
	PropContentLengthHeader  = "Prop-content-length"
	TextContentLengthHeader  = "Text-content-length"
	TextDeltaHeader          = "Text-delta"
	PropDeltaHeader          = "Prop-delta"
	ContentLengthHeader      = "Content-length"
	PropsEnd                 = "PROPS-END"
	RevisionPropDate         = "svn:date"
	RevisionPropAuthor       = "svn:author"
	RevisionPropLog          = "svn:log"
	MaxSupportedDumpFormat   = 3
	DefaultFileReadChunkSize = 102400
)

// Property namespaces and the reserved names a consumer of an editor will see.
const (
	PropPrefix       = "svn:"
	PropCustomPrefix = PropPrefix + "custom:"
	PropEntryPrefix  = PropPrefix + "entry:"
	PropWCPrefix     = PropPrefix + "wc:"

	PropEntryCommittedRev  = PropEntryPrefix + "committed-rev"
	PropEntryCommittedDate = PropEntryPrefix + "committed-date"
	PropEntryLastAuthor    = PropEntryPrefix + "last-author"

	// PropWCVersionURL carries a node's version-resource reference. It is
	// sent through the ordinary property calls so the working copy stores it
	// next to the node's other metadata.
	PropWCVersionURL  = PropWCPrefix + "ra_dav:version-url"
	PropWCActivityURL = PropWCPrefix + "ra_dav:activity-url"

	// PropDirtyMarker is sent, with no value, by a status-only exchange to
	// flag that a node has property changes. The name itself means nothing.
	PropDirtyMarker = PropPrefix + "BOGOSITY"

	// Server bookkeeping that must never reach a working copy.
	PropBaselineRelativePath = PropPrefix + "baseline-relative-path"
)

// DAV live property names as they appear on the wire, namespace and local
// name concatenated.
const (
	DAVNamespace              = "DAV:"
	DAVPropVersionName        = DAVNamespace + "version-name"
	DAVPropCreationDate       = DAVNamespace + "creationdate"
	DAVPropCreatorDisplayName = DAVNamespace + "creator-displayname"
	DAVPropCheckedIn          = DAVNamespace + "checked-in"

	DAVPropVersionControlledConfiguration = DAVNamespace + "version-controlled-configuration"
	DAVPropBaselineCollection             = DAVNamespace + "baseline-collection"
)
