package runner

import (
	"fmt"

	v1 "github.com/spoolkit/spool/apis/v1"
	"github.com/spoolkit/spool/internal/source"
)

// ResolvedSpec holds a source kind identifier and the spec for that kind.
type ResolvedSpec struct {
	Kind string
	Spec any
}

// ResolveSourceSpec extracts the kind and spec from a v1.SourceSpec.
// Returns an error if no source type, or more than one, is specified.
func ResolveSourceSpec(entry string, s v1.SourceSpec) (ResolvedSpec, error) {
	var resolved []ResolvedSpec
	if s.Inline != nil {
		resolved = append(resolved, ResolvedSpec{Kind: source.InlineSourceKind, Spec: s.Inline})
	}
	if s.File != nil {
		resolved = append(resolved, ResolvedSpec{Kind: source.FileSourceKind, Spec: s.File})
	}
	if s.Exec != nil {
		resolved = append(resolved, ResolvedSpec{Kind: source.ExecSourceKind, Spec: s.Exec})
	}

	switch len(resolved) {
	case 1:
		return resolved[0], nil
	case 0:
		return ResolvedSpec{}, fmt.Errorf("entry %q has no source specified", entry)
	default:
		return ResolvedSpec{}, fmt.Errorf("entry %q has more than one source specified", entry)
	}
}
