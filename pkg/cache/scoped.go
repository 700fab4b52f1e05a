package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// Organizations share one cache backend but never read each other's
// artifacts:
//
//	orgKeyer := NewScopedKeyer(NewDefaultKeyer(), "org:"+orgID+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// DesignKey generates a prefixed key for exported design files.
func (k *ScopedKeyer) DesignKey(provider, file, node string) string {
	return k.prefix + k.inner.DesignKey(provider, file, node)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(htmlHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(htmlHash, opts)
}
