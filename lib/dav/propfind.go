package dav

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	svn "github.com/kfsone/svndelta/lib"
)

type multistatus struct {
	Responses []davResponse `xml:"DAV: response"`
}

type davResponse struct {
	Href      string     `xml:"DAV: href"`
	Propstats []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Prop   propList `xml:"DAV: prop"`
	Status string   `xml:"DAV: status"`
}

type propList struct {
	Items []davProp `xml:",any"`
}

// davProp is any one property; checked-in carries its value in an href,
// resourcetype in a collection marker.
type davProp struct {
	XMLName    xml.Name
	Value      string    `xml:",chardata"`
	Href       string    `xml:"DAV: href"`
	Collection *struct{} `xml:"DAV: collection"`
}

// ParseMultistatus reads a depth-0 PROPFIND reply into a Resource. Only
// properties from a propstat with a 200 status are kept.
func ParseMultistatus(r io.Reader) (*Resource, error) {
	resources, err := parseMultistatus(r)
	if err != nil {
		return nil, err
	}
	return resources[0], nil
}

// ParseListing reads a depth-1 PROPFIND reply, one Resource per response in
// the order the server sent them.
func ParseListing(r io.Reader) ([]*Resource, error) {
	return parseMultistatus(r)
}

func parseMultistatus(r io.Reader) ([]*Resource, error) {
	var ms multistatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(ms.Responses) == 0 {
		return nil, fmt.Errorf("%w: multistatus has no response", ErrMalformedResponse)
	}

	resources := make([]*Resource, 0, len(ms.Responses))
	for _, response := range ms.Responses {
		resources = append(resources, newResource(response))
	}
	return resources, nil
}

func newResource(response davResponse) *Resource {
	resource := &Resource{URL: strings.TrimSpace(response.Href), Props: make(map[string]string)}
	for _, ps := range response.Propstats {
		if !statusOK(ps.Status) {
			continue
		}
		for _, prop := range ps.Prop.Items {
			key := qualifiedName(prop.XMLName)
			switch {
			case key == svn.DAVNamespace+"resourcetype":
				resource.IsCollection = prop.Collection != nil
			case prop.Href != "":
				resource.Props[key] = strings.TrimSpace(prop.Href)
			default:
				resource.Props[key] = prop.Value
			}
		}
	}
	return resource
}

// statusOK checks a status line such as "HTTP/1.1 200 OK".
func statusOK(line string) bool {
	fields := strings.Fields(line)
	return len(fields) >= 2 && fields[1] == "200"
}
