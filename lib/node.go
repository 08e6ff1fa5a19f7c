package svn

import (
	"fmt"
	"strings"
)

// Node is one node record of a dump revision: an action applied to a path,
// possibly with history, properties and text.
type Node struct {
	Path   string
	Kind   NodeKind
	Action NodeAction

	FromRev  Revnum
	FromPath string

	Headers *Headers

	// Properties is nil when the record carries no property block. With
	// PropDelta set it holds only changed properties and DeletedProps the
	// removed names; otherwise it is the complete list.
	Properties   Properties
	DeletedProps []string
	PropDelta    bool

	// Text is nil when the record carries no text. With TextDelta set it
	// is an svndiff against the node's previous content.
	Text      []byte
	TextDelta bool
}

// HasText reports whether the record replaces the node's content.
func (n *Node) HasText() bool {
	return n.Text != nil
}

// Branched returns the copy source of the node, if it has one.
func (n *Node) Branched() (rev Revnum, path string, branched bool) {
	if n.FromPath == "" {
		return InvalidRevnum, "", false
	}
	return n.FromRev, n.FromPath, true
}

func (n *Node) label() string {
	label := n.Path
	if n.Kind != NodeKindNone {
		label += ":" + n.Kind.String()
	}
	return label + ":" + n.Action.String()
}

// NewNode reads a node record from the reader. The reader must be positioned
// at a Node-path header.
func NewNode(r *DumpReader) (*Node, error) {
	headers, err := NewHeaders(r)
	if err != nil {
		return nil, err
	}

	node := &Node{Headers: headers, FromRev: InvalidRevnum}
	if node.Path, err = headers.String(NodePathHeader); err != nil {
		return nil, err
	}
	node.Path = strings.Trim(node.Path, "/")

	if kind, err := headers.String(NodeKindHeader); err == nil {
		if node.Kind, err = GetNodeKind(kind); err != nil {
			return nil, fmt.Errorf("%s: %w", node.Path, err)
		}
	}

	action, err := headers.String(NodeActionHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.Path, err)
	}
	if node.Action, err = GetNodeAction(action); err != nil {
		return nil, fmt.Errorf("%s: %w", node.Path, err)
	}
	if node.Action != NodeActionDelete && node.Kind == NodeKindNone {
		return nil, fmt.Errorf("%s: %w: %s", node.Path, ErrMissingField, NodeKindHeader)
	}

	if headers.Has(NodeCopyfromRevHeader) {
		if node.FromPath, err = headers.String(NodeCopyfromPathHeader); err != nil {
			return nil, fmt.Errorf("%s: %w", node.label(), err)
		}
		node.FromPath = strings.Trim(node.FromPath, "/")
		fromRev, _ := headers.String(NodeCopyfromRevHeader)
		if node.FromRev, err = ParseRevnum(fromRev); err != nil {
			return nil, fmt.Errorf("%s: %w", node.label(), err)
		}
	}

	log("| %-7s:%4s:%s", node.Action, node.Kind, node.Path)

	propLen, err := headers.IntOr(PropContentLengthHeader, -1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.label(), err)
	}
	textLen, err := headers.IntOr(TextContentLengthHeader, -1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.label(), err)
	}

	if propLen >= 0 {
		block, err := r.Read(propLen)
		if err != nil {
			return nil, fmt.Errorf("%s: properties: %w", node.label(), err)
		}
		node.PropDelta = headers.Bool(PropDeltaHeader)
		if node.Properties, node.DeletedProps, err = ReadProperties(NewDumpReader(block)); err != nil {
			return nil, fmt.Errorf("%s: properties: %w", node.label(), err)
		}
	}

	if textLen >= 0 {
		if node.Text, err = r.Read(textLen); err != nil {
			return nil, fmt.Errorf("%s: content: %w", node.label(), err)
		}
		if node.Text == nil {
			node.Text = []byte{}
		}
		node.TextDelta = headers.Bool(TextDeltaHeader)
	}

	r.SkipNewlines()

	return node, nil
}
