// Package static provides an in-memory dom.Element and dom.Observer
// implementation over a parsed HTML tree. The annotation core is
// exercised against it in tests and snapshot debugging without a real
// rendering environment. Mutations performed through the interface are
// queued as mutation records and delivered on Flush, mimicking the
// batched delivery of a browser mutation observer.
package static

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/entrhq/grimnote/pkg/dom"
)

// Document owns a parsed HTML tree plus the observer and click-handler
// state attached to it.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	handlers map[*html.Node]func()
	subs     map[int]*subscription
	nextSub  int
	queue    []record
}

type record struct {
	kind   dom.MutationKind
	target *html.Node
	added  []*html.Node
	attr   string
}

type subscription struct {
	doc    *Document
	id     int
	target *html.Node
	opts   dom.ObserveOptions
	fn     func([]dom.Mutation)
}

// Disconnect removes the subscription. Idempotent.
func (s *subscription) Disconnect() {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	delete(s.doc.subs, s.id)
}

// Parse builds a document from an HTML source string.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		root:     root,
		handlers: make(map[*html.Node]func()),
		subs:     make(map[int]*subscription),
	}, nil
}

// Find returns the first element in the document matching the selector.
func (d *Document) Find(selector string) (*Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	node := queryFirst(d.root, selector)
	if node == nil {
		return nil, false
	}
	return &Element{doc: d, node: node}, true
}

// MustFind is Find for test setup where absence is a bug.
func (d *Document) MustFind(selector string) *Element {
	el, ok := d.Find(selector)
	if !ok {
		panic(fmt.Sprintf("static: no element matches %q", selector))
	}
	return el
}

// Observe implements dom.Observer.
func (d *Document) Observe(target dom.Element, opts dom.ObserveOptions, fn func([]dom.Mutation)) (dom.Subscription, error) {
	el, ok := target.(*Element)
	if !ok {
		return nil, fmt.Errorf("target is not a static element")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	sub := &subscription{doc: d, id: d.nextSub, target: el.node, opts: opts, fn: fn}
	d.subs[sub.id] = sub
	return sub, nil
}

// Flush delivers every queued mutation record to the matching
// subscriptions, one batch per subscription. Records queued by the
// callbacks themselves stay in the queue for the next Flush.
func (d *Document) Flush() {
	d.mu.Lock()
	pending := d.queue
	d.queue = nil
	subs := make([]*subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	d.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	for _, s := range subs {
		var batch []dom.Mutation
		for _, r := range pending {
			if !s.accepts(r) {
				continue
			}
			m := dom.Mutation{
				Kind:          r.kind,
				Target:        &Element{doc: d, node: r.target},
				AttributeName: r.attr,
			}
			for _, n := range r.added {
				if n.Type == html.ElementNode {
					m.Added = append(m.Added, &Element{doc: d, node: n})
				}
			}
			batch = append(batch, m)
		}
		if len(batch) == 0 {
			continue
		}
		// Skip subscriptions disconnected by an earlier callback.
		d.mu.Lock()
		_, alive := d.subs[s.id]
		d.mu.Unlock()
		if alive {
			s.fn(batch)
		}
	}
}

func (s *subscription) accepts(r record) bool {
	switch r.kind {
	case dom.MutationChildList:
		if !s.opts.ChildList {
			return false
		}
		if s.opts.Subtree {
			return isDescendantOrSelf(r.target, s.target)
		}
		return r.target == s.target
	case dom.MutationAttributes:
		if !s.opts.Attributes {
			return false
		}
		if r.target != s.target && !(s.opts.Subtree && isDescendantOrSelf(r.target, s.target)) {
			return false
		}
		if len(s.opts.AttributeFilter) == 0 {
			return true
		}
		for _, name := range s.opts.AttributeFilter {
			if name == r.attr {
				return true
			}
		}
	}
	return false
}

func (d *Document) enqueue(r record) {
	d.queue = append(d.queue, r)
}

// Click invokes the click handler registered on el, if any. Test-side
// helper simulating user interaction.
func (d *Document) Click(el *Element) bool {
	d.mu.Lock()
	handler := d.handlers[el.node]
	d.mu.Unlock()

	if handler == nil {
		return false
	}
	handler()
	return true
}

// AppendHTML parses a fragment and appends its elements under parent,
// recording a child-list mutation. Simulates a host re-render.
func (d *Document) AppendHTML(parent *Element, fragment string) error {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var added []*html.Node
	for _, n := range nodes {
		parent.node.AppendChild(n)
		added = append(added, n)
	}
	d.enqueue(record{kind: dom.MutationChildList, target: parent.node, added: added})
	return nil
}

// Remove detaches el from its parent, recording a child-list mutation on
// the parent. Simulates the host tearing down an overlay.
func (d *Document) Remove(el *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent := el.node.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(el.node)
	d.enqueue(record{kind: dom.MutationChildList, target: parent})
}

// Element is a static implementation of dom.Element.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ dom.Element = (*Element)(nil)

// Text returns the concatenated text of all descendant text nodes.
func (e *Element) Text() (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var b strings.Builder
	collectText(e.node, &b)
	return b.String(), nil
}

// SetText replaces the element's children with a single text node.
func (e *Element) SetText(text string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for e.node.FirstChild != nil {
		e.node.RemoveChild(e.node.FirstChild)
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	e.doc.enqueue(record{kind: dom.MutationChildList, target: e.node})
	return nil
}

// AddClass adds a class to the element.
func (e *Element) AddClass(class string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	classes := nodeClasses(e.node)
	for _, c := range classes {
		if c == class {
			return nil
		}
	}
	setAttr(e.node, "class", strings.TrimSpace(strings.Join(append(classes, class), " ")))
	e.doc.enqueue(record{kind: dom.MutationAttributes, target: e.node, attr: "class"})
	return nil
}

// RemoveClass removes a class from the element.
func (e *Element) RemoveClass(class string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	classes := nodeClasses(e.node)
	kept := classes[:0]
	removed := false
	for _, c := range classes {
		if c == class {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return nil
	}
	setAttr(e.node, "class", strings.Join(kept, " "))
	e.doc.enqueue(record{kind: dom.MutationAttributes, target: e.node, attr: "class"})
	return nil
}

// HasClass reports whether the class is present.
func (e *Element) HasClass(class string) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for _, c := range nodeClasses(e.node) {
		if c == class {
			return true, nil
		}
	}
	return false, nil
}

// Attribute returns an attribute value.
func (e *Element) Attribute(name string) (string, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

// SetAttribute sets an attribute.
func (e *Element) SetAttribute(name, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	setAttr(e.node, name, value)
	e.doc.enqueue(record{kind: dom.MutationAttributes, target: e.node, attr: name})
	return nil
}

// Matches reports whether the element matches the selector.
func (e *Element) Matches(selector string) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return matches(e.node, selector), nil
}

// Query returns the first matching descendant.
func (e *Element) Query(selector string) (dom.Element, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var node *html.Node
	for c := e.node.FirstChild; c != nil && node == nil; c = c.NextSibling {
		node = queryFirst(c, selector)
	}
	if node == nil {
		return nil, false, nil
	}
	return &Element{doc: e.doc, node: node}, true, nil
}

// QueryAll returns every matching descendant in document order.
func (e *Element) QueryAll(selector string) ([]dom.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var out []dom.Element
	walkElements(e.node, func(n *html.Node) {
		if n != e.node && matches(n, selector) {
			out = append(out, &Element{doc: e.doc, node: n})
		}
	})
	return out, nil
}

// Closest walks up from the element to the nearest matching ancestor,
// the element itself included.
func (e *Element) Closest(selector string) (dom.Element, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && matches(n, selector) {
			return &Element{doc: e.doc, node: n}, true, nil
		}
	}
	return nil, false, nil
}

// Append creates a child element from the spec.
func (e *Element) Append(spec dom.ElementSpec) (dom.Element, error) {
	if spec.Tag == "" {
		return nil, fmt.Errorf("element spec needs a tag")
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	node := &html.Node{Type: html.ElementNode, Data: spec.Tag}
	if len(spec.Classes) > 0 {
		setAttr(node, "class", strings.Join(spec.Classes, " "))
	}
	for name, value := range spec.Attributes {
		setAttr(node, name, value)
	}
	if spec.Text != "" {
		node.AppendChild(&html.Node{Type: html.TextNode, Data: spec.Text})
	}

	e.node.AppendChild(node)
	e.doc.enqueue(record{kind: dom.MutationChildList, target: e.node, added: []*html.Node{node}})
	return &Element{doc: e.doc, node: node}, nil
}

// OnClick registers a click handler, replacing any previous one.
func (e *Element) OnClick(handler func()) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.handlers[e.node] = handler
	return nil
}

// helpers

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func nodeClasses(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func walkElements(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, visit)
	}
}

func queryFirst(root *html.Node, selector string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && matches(n, selector) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func isDescendantOrSelf(n, ancestor *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}
