// Package fakedom is an in-memory implementation of the browser driver
// surface, used by tests to script portal pages without a real browser.
// It supports the selector subset the engine actually uses: tag, #id,
// tag#id, [attr="v"] and [attr*="v"] with an optional tag prefix.
package fakedom

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"portalverify/browser"
)

// Node is one DOM node. Build trees with NewNode and Append; flip Hidden to
// make a node (and its subtree) invisible. OnClick runs when the engine
// clicks the node, which is how tests script submits and navigations.
type Node struct {
	Tag     string
	ID      string
	Attrs   map[string]string
	Text    string
	Hidden  bool
	Val     string
	OnClick func()
	// RejectFill makes Fill succeed while leaving Val empty, simulating the
	// wrong-scope bug the read-back verification exists to catch.
	RejectFill bool

	parent   *Node
	children []*Node
}

// NewNode builds a node; attrs are alternating key/value pairs.
func NewNode(tag string, attrs ...string) *Node {
	n := &Node{Tag: tag, Attrs: map[string]string{}}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == "id" {
			n.ID = attrs[i+1]
			continue
		}
		n.Attrs[attrs[i]] = attrs[i+1]
	}
	return n
}

func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

func (n *Node) visible() bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Hidden {
			return false
		}
	}
	return true
}

func (n *Node) attr(name string) string {
	if name == "id" {
		return n.ID
	}
	return n.Attrs[name]
}

// walk visits n and its subtree in document order.
func (n *Node) walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.children {
		c.walk(visit)
	}
}

// selector matching

type selector struct {
	tag      string
	id       string
	attrName string
	attrVal  string
	contains bool
}

func parseSelector(raw string) (*selector, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, " >:,") {
		return nil, fmt.Errorf("fakedom: unsupported selector %q", raw)
	}
	sel := &selector{}
	if i := strings.Index(s, "["); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("fakedom: unsupported selector %q", raw)
		}
		sel.tag = s[:i]
		body := s[i+1 : len(s)-1]
		op := "="
		if strings.Contains(body, "*=") {
			op = "*="
			sel.contains = true
		}
		parts := strings.SplitN(body, op, 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("fakedom: unsupported selector %q", raw)
		}
		sel.attrName = parts[0]
		sel.attrVal = strings.Trim(parts[1], `"'`)
		return sel, nil
	}
	if i := strings.Index(s, "#"); i >= 0 {
		sel.tag = s[:i]
		sel.id = s[i+1:]
		return sel, nil
	}
	sel.tag = s
	return sel, nil
}

func (sel *selector) matches(n *Node) bool {
	if sel.tag != "" && n.Tag != sel.tag {
		return false
	}
	if sel.id != "" && n.ID != sel.id {
		return false
	}
	if sel.attrName != "" {
		v := n.attr(sel.attrName)
		if sel.contains {
			return v != "" && strings.Contains(v, sel.attrVal)
		}
		return v == sel.attrVal
	}
	return true
}

func queryNodes(root *Node, rawSelector string) ([]*Node, error) {
	sel, err := parseSelector(rawSelector)
	if err != nil {
		return nil, err
	}
	var out []*Node
	root.walk(func(n *Node) {
		if sel.matches(n) {
			out = append(out, n)
		}
	})
	return out, nil
}

// Frame is a searchable scope backed by a node tree. Mark Detached to make
// every query fail, the way a frame removed by navigation would.
type Frame struct {
	Name     string
	Root     *Node
	Detached bool
}

func NewFrame(name string, root *Node) *Frame {
	return &Frame{Name: name, Root: root}
}

func (f *Frame) Query(selector string) (browser.Element, error) {
	nodes, err := f.queryAllNodes(selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &Element{node: nodes[0]}, nil
}

func (f *Frame) QueryAll(selector string) ([]browser.Element, error) {
	nodes, err := f.queryAllNodes(selector)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{node: n})
	}
	return out, nil
}

func (f *Frame) queryAllNodes(selector string) ([]*Node, error) {
	if f.Detached {
		return nil, errors.New("fakedom: frame is detached")
	}
	if f.Root == nil {
		return nil, nil
	}
	return queryNodes(f.Root, selector)
}

func (f *Frame) Describe() string { return "frame " + f.Name }

// Element implements browser.Element over a Node.
type Element struct {
	node *Node
}

// Node exposes the backing node so tests can assert on mutated state.
func (e *Element) Node() *Node { return e.node }

func (e *Element) Query(selector string) (browser.Element, error) {
	nodes, err := queryNodes(e.node, selector)
	if err != nil {
		return nil, err
	}
	// queryNodes includes the boundary node itself; skip it.
	for _, n := range nodes {
		if n != e.node {
			return &Element{node: n}, nil
		}
	}
	return nil, nil
}

func (e *Element) QueryAll(selector string) ([]browser.Element, error) {
	nodes, err := queryNodes(e.node, selector)
	if err != nil {
		return nil, err
	}
	var out []browser.Element
	for _, n := range nodes {
		if n != e.node {
			out = append(out, &Element{node: n})
		}
	}
	return out, nil
}

func (e *Element) Visible() (bool, error) { return e.node.visible(), nil }

func (e *Element) Click() error {
	if e.node.OnClick != nil {
		e.node.OnClick()
	}
	return nil
}

func (e *Element) Fill(value string) error {
	if e.node.RejectFill {
		return nil
	}
	e.node.Val = value
	return nil
}

func (e *Element) Value() (string, error) { return e.node.Val, nil }

func (e *Element) Text() (string, error) { return e.node.Text, nil }

func (e *Element) Attr(name string) (string, error) { return e.node.attr(name), nil }

func (e *Element) EnclosingForm() (browser.Element, error) {
	for cur := e.node.parent; cur != nil; cur = cur.parent {
		if cur.Tag == "form" {
			return &Element{node: cur}, nil
		}
	}
	return nil, nil
}

// Page implements browser.Page over a main frame plus subframes.
type Page struct {
	Main      *Frame
	Subframes []*Frame

	PageTitle string
	Addr      string
	// Routes maps navigated URLs to handlers that rebuild the page, the way
	// a server would respond.
	Routes map[string]func(*Page)

	// Error injection for read paths; nil means the read succeeds.
	TitleErr      error
	BodyErr       error
	ScreenshotErr error

	ScreenshotPaths []string
}

func NewPage(root *Node) *Page {
	return &Page{Main: NewFrame("main", root), Routes: map[string]func(*Page){}}
}

func (p *Page) Query(selector string) (browser.Element, error)      { return p.Main.Query(selector) }
func (p *Page) QueryAll(selector string) ([]browser.Element, error) { return p.Main.QueryAll(selector) }

func (p *Page) Describe() string {
	if p.Addr != "" {
		return p.Addr
	}
	return "page"
}

func (p *Page) Navigate(url string) error {
	p.Addr = url
	if handler, ok := p.Routes[url]; ok {
		handler(p)
	}
	return nil
}

func (p *Page) Frames() []browser.Scope {
	out := make([]browser.Scope, 0, len(p.Subframes))
	for _, f := range p.Subframes {
		out = append(out, f)
	}
	return out
}

func (p *Page) Title() (string, error) {
	if p.TitleErr != nil {
		return "", p.TitleErr
	}
	return p.PageTitle, nil
}

func (p *Page) BodyText() (string, error) {
	if p.BodyErr != nil {
		return "", p.BodyErr
	}
	var parts []string
	if p.Main.Root != nil {
		p.Main.Root.walk(func(n *Node) {
			if n.Text != "" && n.visible() {
				parts = append(parts, n.Text)
			}
		})
	}
	return strings.Join(parts, " "), nil
}

func (p *Page) URL() string { return p.Addr }

func (p *Page) WaitReady() error { return nil }

func (p *Page) Content() (string, error) {
	var b strings.Builder
	b.WriteString("<html>")
	if p.Main.Root != nil {
		p.Main.Root.walk(func(n *Node) {
			fmt.Fprintf(&b, "<%s id=%q>%s</%s>", n.Tag, n.ID, n.Text, n.Tag)
		})
	}
	b.WriteString("</html>")
	return b.String(), nil
}

func (p *Page) Screenshot(path string) error {
	if p.ScreenshotErr != nil {
		return p.ScreenshotErr
	}
	p.ScreenshotPaths = append(p.ScreenshotPaths, path)
	return os.WriteFile(path, []byte("fake png"), 0644)
}

// Tracer records the trace lifecycle so tests can assert it is always
// finalized.
type Tracer struct {
	StartedCount int
	StoppedCount int
	StopPath     string
	StartErr     error
	StopErr      error
}

func (t *Tracer) Start() error {
	t.StartedCount++
	return t.StartErr
}

func (t *Tracer) Stop(path string) error {
	t.StoppedCount++
	t.StopPath = path
	if t.StopErr != nil {
		return t.StopErr
	}
	return os.WriteFile(path, []byte("fake trace"), 0644)
}
