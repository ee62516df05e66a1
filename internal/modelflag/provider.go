// Package modelflag obtains proposed risk flags for a note from an
// external language model. The provider lives outside the engine core: the
// checker and the serving surfaces tolerate its absence or failure and mark
// the result degraded instead of failing the check.
package modelflag

import (
	"context"

	"github.com/redflag-advisory-server/internal/domain"
)

// Provider proposes risk flags for the fields of one note. A successful
// call returns a non-nil slice, empty when the model saw nothing. Callers
// translate an error into a nil slice, which downstream marks the result
// degraded.
type Provider interface {
	ProposeFlags(ctx context.Context, fields domain.NoteFields) ([]domain.ModelFlag, error)
}
