package prop

import "fmt"

// Registry holds the properties of one peripheral and applies the refresh
// policy on reads.
//
// A registry is single-goroutine by design: the hub serializes all
// peripheral traffic, and handlers run inline on the caller's goroutine.
type Registry struct {
	props       map[string]*Property
	order       []string
	initialized bool
	refresh     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{props: make(map[string]*Property)}
}

// Add registers a property. Names must be unique within the registry.
func (r *Registry) Add(meta Metadata) (*Property, error) {
	if _, ok := r.props[meta.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, meta.Name)
	}
	p := NewProperty(meta)
	p.reg = r
	r.props[meta.Name] = p
	r.order = append(r.order, meta.Name)
	return p, nil
}

// MustAdd is Add for registration code paths where a duplicate name is a
// programming error.
func (r *Registry) MustAdd(meta Metadata) *Property {
	p, err := r.Add(meta)
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup returns the named property without running any handler.
func (r *Registry) Lookup(name string) (*Property, error) {
	p, ok := r.props[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Has reports whether the named property is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.props[name]
	return ok
}

// Names returns the property names in registration order.
func (r *Registry) Names() []string {
	return r.order
}

// SetInitialized marks the end of the registration phase. Before this point
// every read runs its handler so defaults get replaced by hardware truth;
// after it, the refresh policy applies.
func (r *Registry) SetInitialized() {
	r.initialized = true
}

// Initialized reports whether registration has completed.
func (r *Registry) Initialized() bool {
	return r.initialized
}

// SetRefresh switches the refresh policy. With refresh on, every read runs
// its handler; with refresh off, reads after initialization come from cache.
func (r *Registry) SetRefresh(on bool) {
	r.refresh = on
}

// Refresh reports the current refresh policy.
func (r *Registry) Refresh() bool {
	return r.refresh
}

// Get returns the named property's value, running its read handler only
// when the refresh policy requires it. A cache hit issues no command.
func (r *Registry) Get(name string) (string, error) {
	p, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	if p.meta.BeforeGet != nil && r.needsRead(p) {
		if err := p.meta.BeforeGet(p); err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
	}
	p.justSet = false
	return p.value, nil
}

// needsRead decides whether a read must go to the wire.
func (r *Registry) needsRead(p *Property) bool {
	return p.meta.AlwaysRead || !r.initialized || r.refresh || p.justSet
}

// Set validates and writes the named property. The new value is cached
// before the write handler runs so the handler can read it; a failed write
// restores the previous value. Properties with read-back enabled finish
// with a forced read so the cache reflects what the hardware accepted.
func (r *Registry) Set(name, value string) error {
	p, err := r.Lookup(name)
	if err != nil {
		return err
	}
	if p.meta.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	if err := p.validate(value); err != nil {
		return err
	}

	prev := p.value
	p.value = value
	if p.meta.AfterSet != nil {
		if err := p.meta.AfterSet(p); err != nil {
			p.value = prev
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if p.meta.ReadBack && p.meta.BeforeGet != nil {
		p.justSet = true
		if _, err := r.Get(name); err != nil {
			return err
		}
	}
	return nil
}

// Update forces one wire read of the named property regardless of the
// refresh policy and returns the fresh value.
func (r *Registry) Update(name string) (string, error) {
	p, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	p.justSet = true
	return r.Get(name)
}

// Cached returns the cached value without any handler invocation.
func (r *Registry) Cached(name string) (string, error) {
	p, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return p.value, nil
}

// StoreShared overwrites the cached value of the named property without
// running handlers, for values another peripheral on the same card has
// already pushed to the hardware. Unknown names are ignored: not every
// peripheral registers every shared property.
func (r *Registry) StoreShared(name, value string) error {
	p, ok := r.props[name]
	if !ok {
		return nil
	}
	return p.Store(value)
}
