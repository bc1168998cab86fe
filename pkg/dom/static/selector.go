package static

import (
	"strings"

	"golang.org/x/net/html"
)

// The selector subset covers what the annotation layer actually uses:
// tag names, #id, .class, compounds of those, and comma-separated lists.
// Combinators (descendant, child) are not supported.

type compound struct {
	tag     string
	id      string
	classes []string
}

func parseSelector(selector string) []compound {
	var out []compound
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, parseCompound(part))
	}
	return out
}

func parseCompound(s string) compound {
	var c compound
	for len(s) > 0 {
		switch s[0] {
		case '.':
			s = s[1:]
			name, rest := readName(s)
			c.classes = append(c.classes, name)
			s = rest
		case '#':
			s = s[1:]
			c.id, s = readName(s)
		default:
			c.tag, s = readName(s)
		}
	}
	return c
}

func readName(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == '#' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func matches(n *html.Node, selector string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range parseSelector(selector) {
		if matchesCompound(n, c) {
			return true
		}
	}
	return false
}

func matchesCompound(n *html.Node, c compound) bool {
	if c.tag != "" && !strings.EqualFold(n.Data, c.tag) {
		return false
	}
	if c.id != "" {
		id, found := attrVal(n, "id")
		if !found || id != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		have := nodeClasses(n)
		for _, want := range c.classes {
			found := false
			for _, h := range have {
				if h == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func attrVal(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
