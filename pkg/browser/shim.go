package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// registryScript runs before any page script. It keeps the element
// registry the Go side addresses elements through, the mutation-observer
// plumbing, and the bridge that forwards posted page messages back to Go.
const registryScript = `(() => {
	if (window.__grimnote) return;
	let nextEl = 0;
	const observers = new Map();
	const attr = "data-grimnote-el";
	const registry = {
		claim(el) {
			let id = el.getAttribute(attr);
			if (id === null) {
				id = String(++nextEl);
				el.setAttribute(attr, id);
			}
			return Number(id);
		},
		byId(id) {
			return document.querySelector('[' + attr + '="' + id + '"]');
		},
		observe(subId, targetId, opts) {
			const target = registry.byId(targetId);
			if (target === null) return;
			const observer = new MutationObserver((records) => {
				const batch = records.map((r) => ({
					kind: r.type === "attributes" ? "attributes" : "childList",
					target: registry.claim(r.target),
					added: Array.from(r.addedNodes)
						.filter((n) => n.nodeType === Node.ELEMENT_NODE)
						.map((n) => registry.claim(n)),
					attributeName: r.attributeName || "",
				}));
				window.__grimnoteMutations(subId, JSON.stringify(batch));
			});
			const init = {
				subtree: opts.subtree,
				childList: opts.childList,
				attributes: opts.attributes,
			};
			if (opts.attributeFilter && opts.attributeFilter.length > 0) {
				init.attributeFilter = opts.attributeFilter;
			}
			observer.observe(target, init);
			observers.set(subId, observer);
		},
		disconnect(subId) {
			const observer = observers.get(subId);
			if (observer) {
				observer.disconnect();
				observers.delete(subId);
			}
		},
	};
	window.__grimnote = registry;
	window.addEventListener("message", (ev) => {
		if (ev.source !== window) return;
		window.__grimnoteMessage(ev.origin, JSON.stringify(ev.data));
	});
})();`

// InstallShim wraps the page's fetch before any page script runs, so
// responses from the matching endpoints are re-posted into the page as
// session-data messages. Patterns use * as the only wildcard.
func (s *Session) InstallShim(patterns []string) error {
	regexes := make([]string, 0, len(patterns))
	for _, p := range patterns {
		regexes = append(regexes, globToRegex(p))
	}
	encoded, err := json.Marshal(regexes)
	if err != nil {
		return fmt.Errorf("failed to encode endpoint patterns: %w", err)
	}

	script := fmt.Sprintf(`(() => {
	if (window.__grimnoteFetch) return;
	window.__grimnoteFetch = true;
	const patterns = %s.map((p) => new RegExp(p));
	const wrapped = window.fetch;
	window.fetch = async (...args) => {
		const response = await wrapped(...args);
		try {
			const url = typeof args[0] === "string" ? args[0] : args[0].url;
			if (patterns.some((p) => p.test(url))) {
				const data = await response.clone().json();
				window.postMessage({ type: "USER_DATA", data: data }, window.location.origin);
			}
		} catch (e) {
			// Non-JSON bodies and opaque responses are not ours to read.
		}
		return response;
	};
})();`, string(encoded))

	if err := s.page.AddInitScript(playwright.Script{
		Content: playwright.String(script),
	}); err != nil {
		return fmt.Errorf("failed to install fetch shim: %w", err)
	}
	return nil
}

// globToRegex converts an endpoint glob to an anchored JS regex source.
func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '.', '+', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\', '/':
			b.WriteString("\\")
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("$")
	return b.String()
}
