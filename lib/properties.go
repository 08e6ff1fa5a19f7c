package svn

import (
	"fmt"
	"sort"
)

// Properties is a node or revision property list. Values are arbitrary bytes
// carried in a string.
type Properties map[string]string

func NewProperties() Properties {
	return Properties{}
}

// Clone returns an independent copy of the list; nil stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	clone := make(Properties, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// Names returns the property names in sorted order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadProperties consumes a property block from the reader: a series of
// K/V pairs (or D deletions when the block is a delta) terminated by
// PROPS-END. Deleted names are returned separately.
//
//	K 10<LF>
//	svn:ignore<LF>
//	V 4<LF>
//	*.o<LF>
//	<LF>
//	PROPS-END<LF>
func ReadProperties(r *DumpReader) (props Properties, deleted []string, err error) {
	props = NewProperties()
	for {
		if _, ok := r.LineAfter(PropsEnd); ok {
			return props, deleted, nil
		}
		if r.AtEOF() {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingField, PropsEnd)
		}

		if r.HasPrefix("D ") {
			key, err := r.ReadSized('D')
			if err != nil {
				return nil, nil, err
			}
			deleted = append(deleted, string(key))
			continue
		}

		key, err := r.ReadSized('K')
		if err != nil {
			return nil, nil, err
		}
		value, err := r.ReadSized('V')
		if err != nil {
			return nil, nil, err
		}
		keyStr := string(key)
		if _, ok := props[keyStr]; ok {
			return nil, nil, fmt.Errorf("duplicate property: %s", keyStr)
		}
		props[keyStr] = string(value)
	}
}
