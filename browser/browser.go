// Package browser defines the narrow driver surface the verification engine
// consumes: scoped DOM queries, element interaction, navigation, screenshots
// and a tracing session. Production runs use the Playwright implementation;
// tests use the in-memory fakedom implementation.
package browser

// Queryable is anything a selector can be resolved against: a page, a frame,
// or an element acting as a search boundary.
type Queryable interface {
	// Query returns the first match for the selector, or nil when nothing
	// matches. A non-nil error means the scope itself could not be searched
	// (detached frame, malformed runtime state).
	Query(selector string) (Element, error)
	// QueryAll returns every match for the selector in document order.
	QueryAll(selector string) ([]Element, error)
}

// Scope is a searchable DOM context: the top-level page or a nested frame.
// A scope is owned by the navigation that created it and may go stale at any
// time; callers re-resolve instead of retaining.
type Scope interface {
	Queryable
	// Describe identifies the scope for diagnostics (URL or frame name).
	Describe() string
}

// Page is the top-level scope plus the page-wide capabilities the engine
// needs. Frames returns the currently attached subframes in attachment
// order; the page itself is not included.
type Page interface {
	Scope
	Navigate(url string) error
	Frames() []Scope
	Title() (string, error)
	BodyText() (string, error)
	URL() string
	// WaitReady blocks until the DOM is ready after a navigation.
	WaitReady() error
	Content() (string, error)
	Screenshot(path string) error
}

// Element is a handle to a single DOM node. Handles are not guaranteed to
// survive navigation; every use tolerates staleness by returning an error.
type Element interface {
	Queryable
	Visible() (bool, error)
	Click() error
	Fill(value string) error
	// Value reads the current input value back from the live DOM.
	Value() (string, error)
	Text() (string, error)
	Attr(name string) (string, error)
	// EnclosingForm resolves the nearest ancestor form element, or nil when
	// the node is not inside a form.
	EnclosingForm() (Element, error)
}

// Tracer is a per-run tracing session: started once at flow entry, stopped
// in a guaranteed finalizer on every exit path.
type Tracer interface {
	Start() error
	Stop(path string) error
}
