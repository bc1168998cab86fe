package dom

import (
	"fmt"
	"sync"
)

// Detector is a stoppable DOM watcher. The view-state machine arms and
// disarms sets of detectors as the top-level view changes.
type Detector interface {
	Start() error
	Stop()
}

// ListChangeDetector watches a container subtree for any child-list
// mutation and invokes its callback unconditionally. It does not diff
// which nodes changed; re-annotation is idempotent, so a full pass per
// batch is correct even when wasteful.
type ListChangeDetector struct {
	observer Observer
	target   Element
	onChange func()

	mu  sync.Mutex
	sub Subscription
}

// NewListChangeDetector creates a detector over the given container.
func NewListChangeDetector(observer Observer, target Element, onChange func()) *ListChangeDetector {
	return &ListChangeDetector{
		observer: observer,
		target:   target,
		onChange: onChange,
	}
}

// Start arms the subscription. Starting an already-started detector is
// an error; the machine always stops before re-arming.
func (d *ListChangeDetector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sub != nil {
		return fmt.Errorf("list-change detector already started")
	}

	sub, err := d.observer.Observe(d.target, ObserveOptions{
		ChildList: true,
		Subtree:   true,
	}, func(muts []Mutation) {
		for _, m := range muts {
			if m.Kind == MutationChildList {
				d.onChange()
				return
			}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to observe list container: %w", err)
	}

	d.sub = sub
	return nil
}

// Stop disconnects the subscription. Safe to call repeatedly.
func (d *ListChangeDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sub != nil {
		d.sub.Disconnect()
		d.sub = nil
	}
}

// OverlayDetector watches a root container for direct-child additions
// matching an overlay signature selector and reports each matching
// element once on appearance. Non-matching nodes and non-child-list
// mutations are ignored.
type OverlayDetector struct {
	observer  Observer
	root      Element
	signature string
	onAppear  func(Element)

	mu  sync.Mutex
	sub Subscription
}

// NewOverlayDetector creates a detector for overlays appearing under
// root. signature is the selector identifying an overlay backdrop.
func NewOverlayDetector(observer Observer, root Element, signature string, onAppear func(Element)) *OverlayDetector {
	return &OverlayDetector{
		observer:  observer,
		root:      root,
		signature: signature,
		onAppear:  onAppear,
	}
}

// Start arms the subscription.
func (d *OverlayDetector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sub != nil {
		return fmt.Errorf("overlay detector already started")
	}

	sub, err := d.observer.Observe(d.root, ObserveOptions{
		ChildList: true,
	}, func(muts []Mutation) {
		for _, m := range muts {
			if m.Kind != MutationChildList {
				continue
			}
			for _, added := range m.Added {
				ok, err := added.Matches(d.signature)
				if err != nil || !ok {
					continue
				}
				d.onAppear(added)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to observe overlay root: %w", err)
	}

	d.sub = sub
	return nil
}

// Stop disconnects the subscription. Safe to call repeatedly.
func (d *OverlayDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sub != nil {
		d.sub.Disconnect()
		d.sub = nil
	}
}

// AwaitClassCleared invokes fn once the class is absent from target.
// When the class is already absent the callback fires synchronously and
// no observer is armed. Otherwise a one-shot attribute subscription is
// installed that self-disconnects on the first qualifying mutation. If
// the target is removed while the wait is pending, the wait simply never
// resolves.
func AwaitClassCleared(observer Observer, target Element, class string, fn func()) error {
	has, err := target.HasClass(class)
	if err != nil {
		return fmt.Errorf("failed to inspect class list: %w", err)
	}
	if !has {
		fn()
		return nil
	}

	var (
		mu   sync.Mutex
		sub  Subscription
		done bool
	)

	s, err := observer.Observe(target, ObserveOptions{
		Attributes:      true,
		AttributeFilter: []string{"class"},
	}, func(muts []Mutation) {
		still, err := target.HasClass(class)
		if err != nil || still {
			return
		}

		mu.Lock()
		if done {
			mu.Unlock()
			return
		}
		done = true
		if sub != nil {
			sub.Disconnect()
		}
		mu.Unlock()

		fn()
	})
	if err != nil {
		return fmt.Errorf("failed to observe loading attribute: %w", err)
	}

	mu.Lock()
	sub = s
	if done {
		// The callback won the race before we recorded the subscription.
		sub.Disconnect()
	}
	mu.Unlock()
	return nil
}
