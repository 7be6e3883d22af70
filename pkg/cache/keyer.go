package cache

// DocumentKeyOpts describes the request shape of a rendered document.
type DocumentKeyOpts struct {
	// GraphHash identifies the source document, see [Hash].
	GraphHash string

	// Path is the resource path, e.g. "/v1/Project/p1".
	Path string

	// Query is the canonical (sorted) query string.
	Query string

	View             string
	Format           string
	MaxDepth         int
	ReduceRedundancy bool
	Indent           bool
}

// Keyer derives cache keys.
type Keyer interface {
	// DocumentKey returns the key of a rendered document.
	DocumentKey(opts DocumentKeyOpts) string
}

// DefaultKeyer hashes the complete request shape.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DocumentKey returns "doc:<sha256 of opts>".
func (DefaultKeyer) DocumentKey(opts DocumentKeyOpts) string {
	return hashKey("doc", opts.GraphHash, opts.Path, opts.Query, opts.View, opts.Format,
		opts.MaxDepth, opts.ReduceRedundancy, opts.Indent)
}
