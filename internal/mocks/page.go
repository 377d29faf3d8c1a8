package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xkilldash9x/protect-viewer/internal/protect"
)

// ErrQueryFailed is returned by every FakePage query while FailQueries is
// set.
var ErrQueryFailed = errors.New("fake page: query failed")

// DOMEvent is an event dispatched on a FakeElement.
type DOMEvent struct {
	Type      string
	Simulated bool
}

// FakeElement is one node of a FakePage.
type FakeElement struct {
	Styles   map[string]string
	Value    string
	Text     string
	Children int
	Clicks   int
	Events   []DOMEvent
}

// FakePage is an in-memory protect.Page. Selectors are matched literally:
// a node added under "header" is what Count("header") sees. It is safe for
// use from a test goroutine while the engine polls it.
type FakePage struct {
	mu             sync.Mutex
	location       string
	elements       map[string][]*FakeElement
	storage        map[string]string
	viewportHeight int
	failQueries    bool
	reloads        int
	navigations    []string
	onClick        map[string]func(index int)
}

var _ protect.Page = (*FakePage)(nil)

// NewFakePage returns an empty page at location with a 1080px viewport.
func NewFakePage(location string) *FakePage {
	return &FakePage{
		location:       location,
		elements:       make(map[string][]*FakeElement),
		storage:        make(map[string]string),
		viewportHeight: 1080,
		onClick:        make(map[string]func(int)),
	}
}

// Add appends n empty nodes under selector.
func (p *FakePage) Add(selector string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.elements[selector] = append(p.elements[selector], &FakeElement{Styles: map[string]string{}})
	}
}

// AddText appends one node per text under selector.
func (p *FakePage) AddText(selector string, texts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, text := range texts {
		p.elements[selector] = append(p.elements[selector], &FakeElement{Styles: map[string]string{}, Text: text})
	}
}

// SetChildren sets the child count of the index-th node under selector.
func (p *FakePage) SetChildren(selector string, index, children int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el := p.lookup(protect.Element{Selector: selector, Index: index}); el != nil {
		el.Children = children
	}
}

// Remove drops every node under selector.
func (p *FakePage) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// SetLocation moves the page without recording a navigation.
func (p *FakePage) SetLocation(location string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = location
}

// SetStorage stores a local storage entry.
func (p *FakePage) SetStorage(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.storage[key] = value
}

// SetViewportHeight sets what ViewportHeight reports.
func (p *FakePage) SetViewportHeight(h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewportHeight = h
}

// FailQueries makes every read fail until cleared.
func (p *FakePage) FailQueries(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failQueries = fail
}

// OnClick registers fn to run after a click on selector. fn runs without the
// page lock held, so it may call back into the page.
func (p *FakePage) OnClick(selector string, fn func(index int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick[selector] = fn
}

// Element returns a copy of the index-th node under selector, or nil.
func (p *FakePage) Element(selector string, index int) *FakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := p.lookup(protect.Element{Selector: selector, Index: index})
	if el == nil {
		return nil
	}
	return el.clone()
}

// Styles returns the inline styles of every node keyed by selector. It is
// the visual state that layout drivers produce.
func (p *FakePage) Styles() map[string][]map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string][]map[string]string, len(p.elements))
	for sel, nodes := range p.elements {
		for _, n := range nodes {
			out[sel] = append(out[sel], n.clone().Styles)
		}
	}
	return out
}

// Reloads returns how often Reload was called.
func (p *FakePage) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// Navigations returns every URL passed to Navigate.
func (p *FakePage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// -- protect.Page --

func (p *FakePage) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQueries {
		return "", ErrQueryFailed
	}
	return p.location, nil
}

func (p *FakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	p.location = url
	return nil
}

func (p *FakePage) Reload(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads++
	return nil
}

func (p *FakePage) Count(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQueries {
		return 0, ErrQueryFailed
	}
	if selector == "" {
		return 0, errors.New("'' is not a valid selector")
	}
	return len(p.elements[selector]), nil
}

func (p *FakePage) ChildCount(_ context.Context, el protect.Element) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQueries {
		return 0, ErrQueryFailed
	}
	node := p.lookup(el)
	if node == nil {
		return 0, fmt.Errorf("no element %s", el)
	}
	return node.Children, nil
}

func (p *FakePage) InnerTexts(_ context.Context, selector string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQueries {
		return nil, ErrQueryFailed
	}
	var texts []string
	for _, n := range p.elements[selector] {
		texts = append(texts, n.Text)
	}
	return texts, nil
}

func (p *FakePage) ViewportHeight(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQueries {
		return 0, ErrQueryFailed
	}
	return p.viewportHeight, nil
}

func (p *FakePage) StorageItem(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQueries {
		return "", false, ErrQueryFailed
	}
	v, ok := p.storage[key]
	return v, ok, nil
}

func (p *FakePage) SetValue(_ context.Context, el protect.Element, value string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node := p.lookup(el)
	if node == nil {
		return false, nil
	}
	node.Value = value
	node.Events = append(node.Events, DOMEvent{Type: "input", Simulated: true})
	return true, nil
}

func (p *FakePage) Click(_ context.Context, el protect.Element) (bool, error) {
	p.mu.Lock()
	node := p.lookup(el)
	if node == nil {
		p.mu.Unlock()
		return false, nil
	}
	node.Clicks++
	node.Events = append(node.Events, DOMEvent{Type: "click"})
	hook := p.onClick[el.Selector]
	p.mu.Unlock()

	if hook != nil {
		hook(el.Index)
	}
	return true, nil
}

func (p *FakePage) SetStyle(_ context.Context, el protect.Element, property, value string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node := p.lookup(el)
	if node == nil {
		return false, nil
	}
	node.Styles[property] = value
	return true, nil
}

func (p *FakePage) lookup(el protect.Element) *FakeElement {
	nodes := p.elements[el.Selector]
	if el.Index < 0 || el.Index >= len(nodes) {
		return nil
	}
	return nodes[el.Index]
}

func (e *FakeElement) clone() *FakeElement {
	c := *e
	c.Styles = make(map[string]string, len(e.Styles))
	for k, v := range e.Styles {
		c.Styles[k] = v
	}
	c.Events = append([]DOMEvent(nil), e.Events...)
	return &c
}
