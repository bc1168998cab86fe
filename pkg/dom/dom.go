// Package dom defines the element and mutation-observation contracts the
// annotation core runs against. The host environment (a driven browser
// page, or an in-memory document in tests) is injected behind these
// interfaces, never hardwired.
package dom

// Element is a handle to a single element in the observed document.
type Element interface {
	// Text returns the element's concatenated text content.
	Text() (string, error)

	// SetText replaces the element's text content.
	SetText(text string) error

	// AddClass adds a class to the element's class list.
	AddClass(class string) error

	// RemoveClass removes a class from the element's class list.
	RemoveClass(class string) error

	// HasClass reports whether the class is present.
	HasClass(class string) (bool, error)

	// Attribute returns the attribute value, found=false when absent.
	Attribute(name string) (value string, found bool, err error)

	// SetAttribute sets an attribute on the element.
	SetAttribute(name, value string) error

	// Matches reports whether the element matches the selector.
	Matches(selector string) (bool, error)

	// Query returns the first descendant matching the selector.
	Query(selector string) (el Element, found bool, err error)

	// QueryAll returns every descendant matching the selector.
	QueryAll(selector string) ([]Element, error)

	// Closest walks up from the element (inclusive) to the nearest
	// ancestor matching the selector.
	Closest(selector string) (el Element, found bool, err error)

	// Append creates a child element from the spec and returns it.
	Append(spec ElementSpec) (Element, error)

	// OnClick registers a click handler on the element.
	OnClick(handler func()) error
}

// ElementSpec describes an element to inject into the document.
type ElementSpec struct {
	Tag        string
	Classes    []string
	Text       string
	Attributes map[string]string
}

// SetClass adds or removes a class depending on on. Convenience used by
// the appliers to keep highlight classes mutually exclusive.
func SetClass(el Element, class string, on bool) error {
	if on {
		return el.AddClass(class)
	}
	return el.RemoveClass(class)
}

// MutationKind discriminates the observed mutation records.
type MutationKind int

const (
	// MutationChildList reports added or removed children.
	MutationChildList MutationKind = iota
	// MutationAttributes reports an attribute change on the target.
	MutationAttributes
)

// Mutation is a single observed change.
type Mutation struct {
	Kind MutationKind

	// Target is the node the mutation happened on.
	Target Element

	// Added holds element nodes added by a child-list mutation.
	Added []Element

	// AttributeName names the changed attribute for attribute mutations.
	AttributeName string
}

// ObserveOptions selects which mutations a subscription receives,
// mirroring the host's mutation-observer options.
type ObserveOptions struct {
	Subtree         bool
	ChildList       bool
	Attributes      bool
	AttributeFilter []string
}

// Observer arms mutation subscriptions against the host document.
// Callbacks are delivered serially, never concurrently.
type Observer interface {
	Observe(target Element, opts ObserveOptions, fn func([]Mutation)) (Subscription, error)
}

// Subscription is an armed observation. Disconnect is idempotent.
type Subscription interface {
	Disconnect()
}
