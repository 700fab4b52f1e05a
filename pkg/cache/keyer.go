package cache

import "fmt"

// Keyer derives cache keys.
type Keyer interface {
	// HTTPKey keys a raw HTTP response body.
	HTTPKey(namespace, key string) string
	// DesignKey keys an exported design file (a Figma frame SVG).
	DesignKey(provider, file, node string) string
	// ArtifactKey keys a rasterized artifact.
	ArtifactKey(htmlHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the rasterization inputs that change the output bytes.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return fmt.Sprintf("http:%s:%s", namespace, key)
}

// DesignKey hashes the provider file and node ids.
func (DefaultKeyer) DesignKey(provider, file, node string) string {
	return hashKey("design:"+provider, file, node)
}

// ArtifactKey hashes the document hash with the raster options.
func (DefaultKeyer) ArtifactKey(htmlHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", htmlHash, opts)
}

var _ Keyer = DefaultKeyer{}
