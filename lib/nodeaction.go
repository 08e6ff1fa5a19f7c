package svn

import "fmt"

// NodeAction represents what action is being applied to a
// node, i.e a change, addition, replacement or deletion.
type NodeAction int

const (
	NodeActionChange NodeAction = iota
	NodeActionAdd
	NodeActionDelete
	NodeActionReplace
)

var NodeActions = map[string]NodeAction{
	"change":  NodeActionChange,
	"add":     NodeActionAdd,
	"delete":  NodeActionDelete,
	"replace": NodeActionReplace,
}

func (a NodeAction) String() string {
	switch a {
	case NodeActionChange:
		return "chg"
	case NodeActionAdd:
		return "add"
	case NodeActionDelete:
		return "del"
	case NodeActionReplace:
		return "rep"
	}
	return "???"
}

func GetNodeAction(act string) (NodeAction, error) {
	if result, ok := NodeActions[act]; ok {
		return result, nil
	}
	return NodeActionChange, fmt.Errorf("%w: %s", ErrUnknownNodeAction, act)
}
