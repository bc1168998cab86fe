// Package intercept recovers session data from the host page's network
// traffic. A fetch-wrapping shim installed into the page posts observed
// payloads back as structured messages; the dispatcher filters them by
// origin and type before the resolver ever sees them.
package intercept

import (
	"encoding/json"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/entrhq/grimnote/pkg/logging"
	"github.com/entrhq/grimnote/pkg/resolver"
)

// MessageTypeUserData tags the session payload messages the shim posts
// into page context.
const MessageTypeUserData = "USER_DATA"

// Message is the cross-context message contract.
type Message struct {
	Type string               `json:"type"`
	Data resolver.SessionList `json:"data"`
}

// Dispatcher accepts cross-context messages and forwards session data.
// Messages are dropped unless their declared origin is the page itself
// and their type matches exactly.
type Dispatcher struct {
	origin     string
	onSessions func(resolver.SessionList)
	logger     *logging.Logger
}

// NewDispatcher creates a dispatcher bound to the page origin.
func NewDispatcher(origin string, onSessions func(resolver.SessionList), logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		origin:     origin,
		onSessions: onSessions,
		logger:     logger,
	}
}

// Dispatch handles one raw message. Foreign origins, foreign types, and
// undecodable payloads are ignored, never errors: the page hosts plenty
// of messages that are not ours.
func (d *Dispatcher) Dispatch(origin string, payload []byte) {
	if origin != d.origin {
		return
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		d.debugf("ignoring undecodable message: %v", err)
		return
	}
	if msg.Type != MessageTypeUserData {
		return
	}

	d.onSessions(msg.Data)
}

func (d *Dispatcher) debugf(format string, v ...interface{}) {
	if d.logger != nil {
		d.logger.Debugf(format, v...)
	}
}

// Matcher selects which response URLs carry session data.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles the endpoint patterns. An unparsable pattern is a
// configuration error and fails fast.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether any pattern matches the URL.
func (m *Matcher) Match(url string) bool {
	for _, g := range m.globs {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// Interceptor inspects observed responses and feeds decoded session
// lists to its callback.
type Interceptor struct {
	matcher    *Matcher
	onSessions func(resolver.SessionList)
	logger     *logging.Logger
}

// NewInterceptor creates an interceptor over the given matcher.
func NewInterceptor(matcher *Matcher, onSessions func(resolver.SessionList), logger *logging.Logger) *Interceptor {
	return &Interceptor{
		matcher:    matcher,
		onSessions: onSessions,
		logger:     logger,
	}
}

// HandleResponse processes one observed response. Non-matching URLs are
// ignored; a matching body that fails to decode is logged and dropped
// rather than propagated, the host may ship shapes we do not know.
func (i *Interceptor) HandleResponse(url string, body []byte) {
	if !i.matcher.Match(url) {
		return
	}

	var sessions resolver.SessionList
	if err := json.Unmarshal(body, &sessions); err != nil {
		if i.logger != nil {
			i.logger.Warnf("session payload from %s did not decode: %v", url, err)
		}
		return
	}

	i.onSessions(sessions)
}
