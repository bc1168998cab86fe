// Package view tracks which of the host's two mutually-exclusive
// top-level views is active and swaps the DOM detectors owned by each
// view as the host transitions between them.
package view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/grimnote/pkg/dom"
	"github.com/entrhq/grimnote/pkg/logging"
)

// State is the top-level view of the host application.
type State string

const (
	// StateStarting is the initial state; it is never re-entered.
	StateStarting State = "starting"
	StateLobby    State = "lobby"
	StateGrimoire State = "grimoire"
)

var (
	// ErrUnknownState is returned for a transition target the machine
	// does not recognize. The host UI contract has changed; there is no
	// recovery.
	ErrUnknownState = errors.New("unknown view state")

	// ErrNoMarker means the root element carries neither the lobby nor
	// the grimoire marker. Startup aborts on it; post-start it is
	// reported through the watch fatal handler.
	ErrNoMarker = errors.New("root element carries no view marker")
)

// Markers names the root element classes identifying each view.
type Markers struct {
	Lobby    string
	Grimoire string
}

// DefaultMarkers matches the host page as currently shipped.
func DefaultMarkers() Markers {
	return Markers{Lobby: "lobby", Grimoire: "grimoire"}
}

// Machine owns the current view state and the per-state detector sets.
// Transition order is teardown before setup so that a DOM node reused
// across views never ends up with duplicate detector registrations.
type Machine struct {
	root      dom.Element
	markers   Markers
	detectors map[State][]dom.Detector
	logger    *logging.Logger

	mu      sync.Mutex
	current State
	watch   dom.Subscription
}

// NewMachine inspects the root element synchronously and transitions
// into the view it advertises, arming that view's detectors. A root
// with neither marker is a fatal initialization error.
func NewMachine(root dom.Element, markers Markers, detectors map[State][]dom.Detector, logger *logging.Logger) (*Machine, error) {
	m := &Machine{
		root:      root,
		markers:   markers,
		detectors: detectors,
		logger:    logger,
		current:   StateStarting,
	}

	initial, err := m.stateFromRoot()
	if err != nil {
		return nil, err
	}
	if err := m.ChangeState(initial); err != nil {
		return nil, err
	}
	return m, nil
}

// Current returns the active state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ChangeState transitions to next: a no-op when next is already
// current, otherwise the previous state's detectors are stopped before
// the next state's are started.
func (m *Machine) ChangeState(next State) error {
	if next != StateLobby && next != StateGrimoire {
		return fmt.Errorf("%w: %q", ErrUnknownState, next)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if next == m.current {
		return nil
	}

	for _, d := range m.detectors[m.current] {
		d.Stop()
	}

	for _, d := range m.detectors[next] {
		if err := d.Start(); err != nil {
			return fmt.Errorf("failed to arm %s detectors: %w", next, err)
		}
	}

	if m.logger != nil {
		m.logger.Infof("view transition: %s -> %s", m.current, next)
	}
	m.current = next
	return nil
}

// Watch observes the root element's class attribute and drives
// transitions from it. Contract violations (marker lost, unknown state)
// are passed to onFatal; the machine does not attempt repair.
func (m *Machine) Watch(observer dom.Observer, onFatal func(error)) error {
	sub, err := observer.Observe(m.root, dom.ObserveOptions{
		Attributes:      true,
		AttributeFilter: []string{"class"},
	}, func([]dom.Mutation) {
		next, err := m.stateFromRoot()
		if err != nil {
			onFatal(err)
			return
		}
		if err := m.ChangeState(next); err != nil {
			onFatal(err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch root element: %w", err)
	}

	m.mu.Lock()
	m.watch = sub
	m.mu.Unlock()
	return nil
}

// Close disconnects the root watch and stops the active detectors.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watch != nil {
		m.watch.Disconnect()
		m.watch = nil
	}
	for _, d := range m.detectors[m.current] {
		d.Stop()
	}
}

func (m *Machine) stateFromRoot() (State, error) {
	if ok, err := m.root.HasClass(m.markers.Lobby); err != nil {
		return "", fmt.Errorf("failed to inspect root element: %w", err)
	} else if ok {
		return StateLobby, nil
	}
	if ok, err := m.root.HasClass(m.markers.Grimoire); err != nil {
		return "", fmt.Errorf("failed to inspect root element: %w", err)
	} else if ok {
		return StateGrimoire, nil
	}
	return "", ErrNoMarker
}
