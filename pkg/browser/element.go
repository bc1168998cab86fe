package browser

import (
	"fmt"

	"github.com/entrhq/grimnote/pkg/dom"
)

// pwElement is a dom.Element backed by a live page element. Elements are
// addressed by a synthetic id the in-page registry stamps onto them, so
// a handle survives re-renders that keep the node but shuffle siblings.
type pwElement struct {
	session *Session
	id      int
}

// eval runs fn against this element. fn receives {el, arg}; a nil result
// with no error means the element has left the document.
func (e *pwElement) eval(fn string, arg interface{}) (interface{}, error) {
	script := fmt.Sprintf(`(args) => {
		const el = window.__grimnote.byId(args.id);
		if (el === null) return null;
		return (%s)(el, args.arg);
	}`, fn)
	return e.session.page.Evaluate(script, map[string]interface{}{
		"id":  e.id,
		"arg": arg,
	})
}

func (e *pwElement) Text() (string, error) {
	result, err := e.eval(`(el) => el.textContent`, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	text, _ := result.(string)
	return text, nil
}

func (e *pwElement) SetText(text string) error {
	if _, err := e.eval(`(el, text) => { el.textContent = text; return true; }`, text); err != nil {
		return fmt.Errorf("failed to set text: %w", err)
	}
	return nil
}

func (e *pwElement) AddClass(class string) error {
	if _, err := e.eval(`(el, c) => { el.classList.add(c); return true; }`, class); err != nil {
		return fmt.Errorf("failed to add class %q: %w", class, err)
	}
	return nil
}

func (e *pwElement) RemoveClass(class string) error {
	if _, err := e.eval(`(el, c) => { el.classList.remove(c); return true; }`, class); err != nil {
		return fmt.Errorf("failed to remove class %q: %w", class, err)
	}
	return nil
}

func (e *pwElement) HasClass(class string) (bool, error) {
	result, err := e.eval(`(el, c) => el.classList.contains(c)`, class)
	if err != nil {
		return false, fmt.Errorf("failed to check class %q: %w", class, err)
	}
	has, _ := result.(bool)
	return has, nil
}

func (e *pwElement) Attribute(name string) (string, bool, error) {
	result, err := e.eval(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, fmt.Errorf("failed to read attribute %q: %w", name, err)
	}
	value, ok := result.(string)
	return value, ok, nil
}

func (e *pwElement) SetAttribute(name, value string) error {
	_, err := e.eval(`(el, arg) => { el.setAttribute(arg.name, arg.value); return true; }`,
		map[string]interface{}{"name": name, "value": value})
	if err != nil {
		return fmt.Errorf("failed to set attribute %q: %w", name, err)
	}
	return nil
}

func (e *pwElement) Matches(selector string) (bool, error) {
	result, err := e.eval(`(el, sel) => el.matches(sel)`, selector)
	if err != nil {
		return false, fmt.Errorf("failed to match selector %q: %w", selector, err)
	}
	matched, _ := result.(bool)
	return matched, nil
}

func (e *pwElement) Query(selector string) (dom.Element, bool, error) {
	result, err := e.eval(`(el, sel) => {
		const found = el.querySelector(sel);
		return found === null ? null : window.__grimnote.claim(found);
	}`, selector)
	if err != nil {
		return nil, false, fmt.Errorf("query %q failed: %w", selector, err)
	}
	id, ok := asInt(result)
	if !ok {
		return nil, false, nil
	}
	return &pwElement{session: e.session, id: id}, true, nil
}

func (e *pwElement) QueryAll(selector string) ([]dom.Element, error) {
	result, err := e.eval(`(el, sel) =>
		Array.from(el.querySelectorAll(sel), (m) => window.__grimnote.claim(m))`, selector)
	if err != nil {
		return nil, fmt.Errorf("query all %q failed: %w", selector, err)
	}
	raw, _ := result.([]interface{})
	elements := make([]dom.Element, 0, len(raw))
	for _, v := range raw {
		if id, ok := asInt(v); ok {
			elements = append(elements, &pwElement{session: e.session, id: id})
		}
	}
	return elements, nil
}

func (e *pwElement) Closest(selector string) (dom.Element, bool, error) {
	result, err := e.eval(`(el, sel) => {
		const found = el.closest(sel);
		return found === null ? null : window.__grimnote.claim(found);
	}`, selector)
	if err != nil {
		return nil, false, fmt.Errorf("closest %q failed: %w", selector, err)
	}
	id, ok := asInt(result)
	if !ok {
		return nil, false, nil
	}
	return &pwElement{session: e.session, id: id}, true, nil
}

func (e *pwElement) Append(spec dom.ElementSpec) (dom.Element, error) {
	attrs := map[string]interface{}{}
	for k, v := range spec.Attributes {
		attrs[k] = v
	}
	result, err := e.eval(`(el, spec) => {
		const child = document.createElement(spec.tag);
		for (const c of spec.classes) child.classList.add(c);
		if (spec.text !== "") child.textContent = spec.text;
		for (const [k, v] of Object.entries(spec.attributes)) child.setAttribute(k, v);
		el.appendChild(child);
		return window.__grimnote.claim(child);
	}`, map[string]interface{}{
		"tag":        spec.Tag,
		"classes":    classList(spec.Classes),
		"text":       spec.Text,
		"attributes": attrs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append element: %w", err)
	}
	id, ok := asInt(result)
	if !ok {
		return nil, fmt.Errorf("append target has left the document")
	}
	return &pwElement{session: e.session, id: id}, nil
}

func (e *pwElement) OnClick(handler func()) error {
	s := e.session
	s.mu.Lock()
	s.nextClick++
	handlerID := s.nextClick
	s.clicks[handlerID] = handler
	s.mu.Unlock()

	_, err := e.eval(`(el, handlerId) => {
		el.addEventListener("click", (ev) => {
			ev.stopPropagation();
			window.__grimnoteClick(handlerId);
		});
		return true;
	}`, handlerID)
	if err != nil {
		s.mu.Lock()
		delete(s.clicks, handlerID)
		s.mu.Unlock()
		return fmt.Errorf("failed to register click handler: %w", err)
	}
	return nil
}

// classList normalizes a nil class slice so the injected script always
// iterates an array.
func classList(classes []string) []interface{} {
	out := make([]interface{}, 0, len(classes))
	for _, c := range classes {
		out = append(out, c)
	}
	return out
}
