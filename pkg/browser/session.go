package browser

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/grimnote/pkg/dom"
	"github.com/entrhq/grimnote/pkg/logging"
)

// Session is one attached host page. It implements dom.Observer and
// hands out dom.Element handles backed by the live page.
type Session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *logging.Logger

	mu        sync.Mutex
	clicks    map[int]func()
	subs      map[int]*pageSubscription
	nextClick int
	nextSub   int

	// deliverMu serializes callback delivery; observer callbacks and
	// click handlers never run concurrently with each other.
	deliverMu sync.Mutex

	onMessage  func(origin string, payload []byte)
	onResponse func(url string, body []byte)
}

// pageSubscription is one armed in-page MutationObserver.
type pageSubscription struct {
	session *Session
	id      int
	fn      func([]dom.Mutation)
	once    sync.Once
}

// Disconnect tears down the in-page observer. Idempotent.
func (s *pageSubscription) Disconnect() {
	s.once.Do(func() {
		s.session.mu.Lock()
		delete(s.session.subs, s.id)
		s.session.mu.Unlock()

		if _, err := s.session.page.Evaluate(
			`(id) => window.__grimnote && window.__grimnote.disconnect(id)`, s.id,
		); err != nil {
			s.session.logger.Warnf("failed to disconnect observer %d: %v", s.id, err)
		}
	})
}

// mutationRecord mirrors the JSON the in-page observer posts back.
type mutationRecord struct {
	Kind          string `json:"kind"`
	Target        int    `json:"target"`
	Added         []int  `json:"added"`
	AttributeName string `json:"attributeName"`
}

func (s *Session) installBindings() error {
	if err := s.page.ExposeBinding("__grimnoteMutations", s.handleMutations); err != nil {
		return fmt.Errorf("failed to expose mutation binding: %w", err)
	}
	if err := s.page.ExposeBinding("__grimnoteClick", s.handleClick); err != nil {
		return fmt.Errorf("failed to expose click binding: %w", err)
	}
	if err := s.page.ExposeBinding("__grimnoteMessage", s.handleMessage); err != nil {
		return fmt.Errorf("failed to expose message binding: %w", err)
	}
	if err := s.page.AddInitScript(playwright.Script{
		Content: playwright.String(registryScript),
	}); err != nil {
		return fmt.Errorf("failed to install registry script: %w", err)
	}

	s.page.OnResponse(func(response playwright.Response) {
		s.mu.Lock()
		handler := s.onResponse
		s.mu.Unlock()
		if handler == nil {
			return
		}
		body, err := response.Body()
		if err != nil {
			// Bodies of redirects and aborted requests are unreadable.
			return
		}
		handler(response.URL(), body)
	})

	return nil
}

func (s *Session) handleMutations(source *playwright.BindingSource, args ...interface{}) interface{} {
	if len(args) < 2 {
		return nil
	}
	subID, ok := asInt(args[0])
	if !ok {
		return nil
	}
	raw, ok := args[1].(string)
	if !ok {
		return nil
	}

	var records []mutationRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warnf("undecodable mutation batch: %v", err)
		return nil
	}

	s.mu.Lock()
	sub := s.subs[subID]
	s.mu.Unlock()
	if sub == nil {
		return nil
	}

	batch := make([]dom.Mutation, 0, len(records))
	for _, rec := range records {
		m := dom.Mutation{
			Target:        &pwElement{session: s, id: rec.Target},
			AttributeName: rec.AttributeName,
		}
		if rec.Kind == "attributes" {
			m.Kind = dom.MutationAttributes
		} else {
			m.Kind = dom.MutationChildList
		}
		for _, id := range rec.Added {
			m.Added = append(m.Added, &pwElement{session: s, id: id})
		}
		batch = append(batch, m)
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	sub.fn(batch)
	return nil
}

func (s *Session) handleClick(source *playwright.BindingSource, args ...interface{}) interface{} {
	if len(args) < 1 {
		return nil
	}
	handlerID, ok := asInt(args[0])
	if !ok {
		return nil
	}

	s.mu.Lock()
	handler := s.clicks[handlerID]
	s.mu.Unlock()
	if handler == nil {
		return nil
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	handler()
	return nil
}

func (s *Session) handleMessage(source *playwright.BindingSource, args ...interface{}) interface{} {
	if len(args) < 2 {
		return nil
	}
	origin, ok := args[0].(string)
	if !ok {
		return nil
	}
	payload, ok := args[1].(string)
	if !ok {
		return nil
	}

	s.mu.Lock()
	handler := s.onMessage
	s.mu.Unlock()
	if handler == nil {
		return nil
	}
	handler(origin, []byte(payload))
	return nil
}

// OnPageMessage registers the handler for messages posted into the page.
func (s *Session) OnPageMessage(fn func(origin string, payload []byte)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnResponse registers the handler for observed network responses.
func (s *Session) OnResponse(fn func(url string, body []byte)) {
	s.mu.Lock()
	s.onResponse = fn
	s.mu.Unlock()
}

// Observe arms an in-page MutationObserver against the target element.
func (s *Session) Observe(target dom.Element, opts dom.ObserveOptions, fn func([]dom.Mutation)) (dom.Subscription, error) {
	el, ok := target.(*pwElement)
	if !ok {
		return nil, fmt.Errorf("target is not a page element")
	}

	s.mu.Lock()
	s.nextSub++
	sub := &pageSubscription{session: s, id: s.nextSub, fn: fn}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	_, err := s.page.Evaluate(`(args) => window.__grimnote.observe(args.sub, args.target, args.opts)`,
		map[string]interface{}{
			"sub":    sub.id,
			"target": el.id,
			"opts": map[string]interface{}{
				"subtree":         opts.Subtree,
				"childList":       opts.ChildList,
				"attributes":      opts.Attributes,
				"attributeFilter": opts.AttributeFilter,
			},
		})
	if err != nil {
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to arm observer: %w", err)
	}
	return sub, nil
}

// Query returns the first element in the document matching the selector.
func (s *Session) Query(selector string) (dom.Element, bool, error) {
	result, err := s.page.Evaluate(`(sel) => {
		const el = document.querySelector(sel);
		return el === null ? null : window.__grimnote.claim(el);
	}`, selector)
	if err != nil {
		return nil, false, fmt.Errorf("document query %q failed: %w", selector, err)
	}
	id, ok := asInt(result)
	if !ok {
		return nil, false, nil
	}
	return &pwElement{session: s, id: id}, true, nil
}

// Origin returns the page's own origin, used to filter posted messages.
func (s *Session) Origin() (string, error) {
	result, err := s.page.Evaluate(`() => window.location.origin`)
	if err != nil {
		return "", fmt.Errorf("failed to read page origin: %w", err)
	}
	origin, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected origin value %v", result)
	}
	return origin, nil
}

// Navigate loads the host page and waits for network idle, so the
// initial session payloads have been observed before callers query the
// document.
func (s *Session) Navigate(url string) error {
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitFor blocks until an element matching selector is attached to the
// document.
func (s *Session) WaitFor(selector string) error {
	if err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateAttached,
	}); err != nil {
		return fmt.Errorf("element %q did not appear: %w", selector, err)
	}
	return nil
}

// CurrentURL returns the page's current URL.
func (s *Session) CurrentURL() string {
	return s.page.URL()
}

func (s *Session) close() {
	if err := s.page.Close(); err != nil {
		s.logger.Warnf("failed to close page: %v", err)
	}
	if err := s.context.Close(); err != nil {
		s.logger.Warnf("failed to close context: %v", err)
	}
	if err := s.browser.Close(); err != nil {
		s.logger.Warnf("failed to close browser: %v", err)
	}
}

// asInt converts a playwright evaluate result to an element/handler id.
// Numbers cross the protocol as json numbers, so float64 or int.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
