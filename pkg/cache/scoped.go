package cache

// ScopedKeyer wraps a Keyer with a prefix so several users or projects can
// share one Redis or MongoDB backend without seeing each other's entries.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "project:arena:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer falls
// back to the default.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(settingsHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(settingsHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
