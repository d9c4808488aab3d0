package operations

import "github.com/Masterminds/semver/v3"

// SequenceHandler is the function signature of a sequence handler. It runs operations with
// ExecuteOperation on the bundle it is given.
type SequenceHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Sequence groups operations. Its report links the reports of every operation it ran.
type Sequence[IN, OUT, DEP any] struct {
	def     Definition
	handler SequenceHandler[IN, OUT, DEP]
}

// NewSequence creates a new sequence.
func NewSequence[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler SequenceHandler[IN, OUT, DEP],
) *Sequence[IN, OUT, DEP] {
	return &Sequence[IN, OUT, DEP]{
		def: Definition{
			ID:          id,
			Version:     version,
			Description: description,
		},
		handler: handler,
	}
}

func (s *Sequence[IN, OUT, DEP]) ID() string {
	return s.def.ID
}

func (s *Sequence[IN, OUT, DEP]) Version() string {
	return s.def.Version.String()
}

func (s *Sequence[IN, OUT, DEP]) Description() string {
	return s.def.Description
}
