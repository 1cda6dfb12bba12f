// Package dom provides a small synthetic document model the interaction
// controllers bind to. It supports the subset of browser behavior the
// storefront needs: an element tree, event dispatch with bubbling, focus
// tracking, and input/button semantics. Tests and the headless demo drive
// it directly, no real browser involved.
package dom

import (
	"strings"
	"sync"
)

// Event types understood by Dispatch.
const (
	EventClick   = "click"
	EventInput   = "input"
	EventSubmit  = "submit"
	EventKeyDown = "keydown"
	EventKeyUp   = "keyup"
	EventBlur    = "blur"
)

// Handler reacts to a dispatched event.
type Handler func(*Event)

// Event carries dispatch state. CapsLock mirrors the keyboard modifier on
// key events.
type Event struct {
	Type     string
	Target   *Element
	Key      string
	CapsLock bool

	stopped   bool
	prevented bool
}

// StopPropagation prevents the event from bubbling past the current element.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Document owns an element tree and the current focus. All mutating
// operations are safe for concurrent use; toast timers remove elements from
// goroutines of their own.
type Document struct {
	mu      sync.RWMutex
	body    *Element
	focused *Element
}

// NewDocument returns a document with an empty body element.
func NewDocument() *Document {
	d := &Document{}
	d.body = &Element{Tag: "body", doc: d}
	return d
}

// Body returns the root element.
func (d *Document) Body() *Element { return d.body }

// CreateElement returns a detached element owned by this document. The id
// may be empty.
func (d *Document) CreateElement(tag, id string) *Element {
	return &Element{Tag: tag, id: id, doc: d}
}

// ByID returns the first element in the tree with the given id, or nil.
func (d *Document) ByID(id string) *Element {
	return d.Find(func(e *Element) bool { return e.id == id })
}

// Find walks the tree depth-first and returns the first element matching fn.
// The matcher runs without the tree lock held, so it may use element getters.
func (d *Document) Find(fn func(*Element) bool) *Element {
	return d.body.Find(fn)
}

// Focused returns the currently focused element, or nil.
func (d *Document) Focused() *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.focused
}

// Element is a node in the document tree. Inputs use Value/Type/Checked;
// every element carries classes, attributes, and text content.
type Element struct {
	Tag string

	doc      *Document
	id       string
	parent   *Element
	children []*Element
	classes  map[string]bool
	attrs    map[string]string
	handlers map[string][]Handler
	text     string
	value    string
	typ      string
	checked  bool
	disabled bool
	hidden   bool
}

// ID returns the element id.
func (e *Element) ID() string { return e.id }

// AppendChild attaches child as the last child of e. A child already in the
// tree is detached from its previous parent first.
func (e *Element) AppendChild(child *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	child.detach()
	child.parent = e
	e.children = append(e.children, child)
}

// PrependChild attaches child as the first child of e.
func (e *Element) PrependChild(child *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	child.detach()
	child.parent = e
	e.children = append([]*Element{child}, e.children...)
}

// Remove detaches e from its parent. Focus moves to nil if it was inside
// the removed subtree.
func (e *Element) Remove() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.detach()
	if f := e.doc.focused; f != nil && f.hasAncestorOrSelf(e) {
		e.doc.focused = nil
	}
}

// RemoveAll detaches every child of e.
func (e *Element) RemoveAll() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
}

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// Parent returns the parent element, or nil for a detached element.
func (e *Element) Parent() *Element {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.parent
}

// Closest walks from e up through its ancestors and returns the first
// element matching fn, or nil.
func (e *Element) Closest(fn func(*Element) bool) *Element {
	e.doc.mu.RLock()
	var chain []*Element
	for cur := e; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	e.doc.mu.RUnlock()
	for _, el := range chain {
		if fn(el) {
			return el
		}
	}
	return nil
}

// Find returns the first descendant of e (or e itself) matching fn.
func (e *Element) Find(fn func(*Element) bool) *Element {
	e.doc.mu.RLock()
	var order []*Element
	e.collect(&order)
	e.doc.mu.RUnlock()
	for _, el := range order {
		if fn(el) {
			return el
		}
	}
	return nil
}

// SetText replaces the text content.
func (e *Element) SetText(s string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.text = s
}

// Text returns the text content.
func (e *Element) Text() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.text
}

// SetValue sets the input value.
func (e *Element) SetValue(s string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.value = s
}

// Value returns the input value.
func (e *Element) Value() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.value
}

// SetType sets the input type ("password", "text", ...).
func (e *Element) SetType(s string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.typ = s
}

// Type returns the input type.
func (e *Element) Type() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.typ
}

// SetChecked sets the checkbox state.
func (e *Element) SetChecked(v bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.checked = v
}

// Checked returns the checkbox state.
func (e *Element) Checked() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.checked
}

// SetDisabled toggles the disabled flag. Disabled elements do not receive
// click events.
func (e *Element) SetDisabled(v bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.disabled = v
}

// Disabled reports the disabled flag.
func (e *Element) Disabled() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.disabled
}

// SetHidden toggles visibility.
func (e *Element) SetHidden(v bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.hidden = v
}

// Hidden reports visibility.
func (e *Element) Hidden() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.hidden
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, val string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.attrs == nil {
		e.attrs = map[string]string{}
	}
	e.attrs[name] = val
}

// Attr returns an attribute value, or "".
func (e *Element) Attr(name string) string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.attrs[name]
}

// AddClass adds a class name.
func (e *Element) AddClass(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.classes == nil {
		e.classes = map[string]bool{}
	}
	e.classes[name] = true
}

// RemoveClass removes a class name.
func (e *Element) RemoveClass(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	delete(e.classes, name)
}

// HasClass reports whether the class is present.
func (e *Element) HasClass(name string) bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.classes[name]
}

// Focus makes e the document's focused element.
func (e *Element) Focus() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.focused = e
}

// On registers a handler for the given event type.
func (e *Element) On(eventType string, h Handler) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.handlers == nil {
		e.handlers = map[string][]Handler{}
	}
	e.handlers[eventType] = append(e.handlers[eventType], h)
}

// Dispatch delivers ev to e and bubbles it toward the body. Clicks whose
// target is disabled, or sits inside a disabled element, are swallowed,
// matching button behavior. Handlers run without the tree lock held so
// they may mutate the document freely.
func (e *Element) Dispatch(ev *Event) {
	ev.Target = e

	e.doc.mu.RLock()
	if ev.Type == EventClick {
		for cur := e; cur != nil; cur = cur.parent {
			if cur.disabled {
				e.doc.mu.RUnlock()
				return
			}
		}
	}
	type hop struct {
		el       *Element
		handlers []Handler
	}
	var path []hop
	for cur := e; cur != nil; cur = cur.parent {
		if hs := cur.handlers[ev.Type]; len(hs) > 0 {
			path = append(path, hop{cur, append([]Handler(nil), hs...)})
		}
	}
	e.doc.mu.RUnlock()

	for _, h := range path {
		for _, fn := range h.handlers {
			fn(ev)
		}
		if ev.stopped {
			return
		}
	}
}

func (e *Element) detach() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

func (e *Element) collect(order *[]*Element) {
	*order = append(*order, e)
	for _, c := range e.children {
		c.collect(order)
	}
}

func (e *Element) hasAncestorOrSelf(a *Element) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if cur == a {
			return true
		}
	}
	return false
}

// ByClass is a convenience matcher for Find/Closest.
func ByClass(name string) func(*Element) bool {
	return func(e *Element) bool { return e.HasClass(name) }
}

// ByAttr matches elements carrying the given attribute value.
func ByAttr(name, val string) func(*Element) bool {
	return func(e *Element) bool { return e.Attr(name) == val }
}

// ByTag matches elements by tag name, case-insensitively.
func ByTag(tag string) func(*Element) bool {
	return func(e *Element) bool { return strings.EqualFold(e.Tag, tag) }
}
