package enums

// ResultSource marks the provenance of a response: real remote data or a
// synthesized substitute produced while the backing service was unreachable.
type ResultSource string

const (
	SourceBackend ResultSource = "backend"
	SourceDemo    ResultSource = "demo"
)

// IsValid reports whether the value is a canonical result source.
func (s ResultSource) IsValid() bool {
	return s == SourceBackend || s == SourceDemo
}
