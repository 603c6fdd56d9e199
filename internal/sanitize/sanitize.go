// Package sanitize strips active content from captured HTML before it is
// written to blob storage.
package sanitize

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Policy declares what the sanitizer removes: whole elements, event-handler
// attribute prefixes, and URL attributes carrying executable schemes.
type Policy struct {
	RemoveElements    map[string]bool
	StripAttrPrefixes []string
	URLAttrs          map[string]bool
	BlockedSchemes    []string
}

// DefaultPolicy removes script/iframe/object/embed, any on* handler, and any
// href/src with an executable scheme.
func DefaultPolicy() Policy {
	return Policy{
		RemoveElements: map[string]bool{
			"script": true,
			"iframe": true,
			"object": true,
			"embed":  true,
		},
		StripAttrPrefixes: []string{"on"},
		URLAttrs:          map[string]bool{"href": true, "src": true},
		BlockedSchemes:    []string{"javascript:", "vbscript:", "data:text/html"},
	}
}

// Apply parses the document, prunes it per the policy, and re-renders it.
// A document that fails to parse is returned as-is with the error.
func (p Policy) Apply(raw []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return raw, err
	}

	p.walk(doc)

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return raw, err
	}
	return out.Bytes(), nil
}

func (p Policy) walk(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && p.RemoveElements[strings.ToLower(c.Data)] {
			n.RemoveChild(c)
			continue
		}
		p.walk(c)
	}

	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if p.dropAttr(a) {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
}

func (p Policy) dropAttr(a html.Attribute) bool {
	key := strings.ToLower(a.Key)
	for _, prefix := range p.StripAttrPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	if p.URLAttrs[key] {
		val := strings.ToLower(strings.TrimSpace(a.Val))
		for _, scheme := range p.BlockedSchemes {
			if strings.HasPrefix(val, scheme) {
				return true
			}
		}
	}
	return false
}
