//go:build !(cgo && rubberband)

package engine

// New creates an engine with the backend selected at build time.
func New(cfg Config) (Engine, error) {
	return NewWSOLA(cfg)
}
