package securestore

// Scoped is a namespace-bound view of a Store. All operations are implicitly
// prefixed with the view's namespace; the underlying backing store and crypto
// engine are shared with the parent.
type Scoped struct {
	store *Store
	name  string
}

// Name returns the namespace this view is bound to.
func (v *Scoped) Name() string {
	return v.name
}

// Set stores value under the view's namespace.
func (v *Scoped) Set(key string, value any, opts Options) error {
	opts.Namespace = v.name
	return v.store.Set(key, value, opts)
}

// Get returns the stored value, or (nil, false) when absent or expired.
func (v *Scoped) Get(key string) (any, bool) {
	return v.store.Get(key, Options{Namespace: v.name})
}

// Has reports whether a live entry exists for key.
func (v *Scoped) Has(key string) bool {
	return v.store.Has(key, Options{Namespace: v.name})
}

// Remove deletes the entry for key.
func (v *Scoped) Remove(key string) {
	v.store.Remove(key, Options{Namespace: v.name})
}

// Keys returns the live entry keys in the view's namespace, sorted.
func (v *Scoped) Keys() []string {
	return v.store.Keys(Options{Namespace: v.name})
}

// Clear removes every entry in the view's namespace.
func (v *Scoped) Clear() {
	v.store.Clear(Options{Namespace: v.name})
}
