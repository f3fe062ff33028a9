// Package verify holds the external finding-verification capability.
// The pipeline consumes it as a port; the default implementation does
// nothing, and only the top-K costliest findings are ever sent to it.
package verify

import (
	"context"

	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

// Verifier confirms (or not) a finding's cost estimate against external
// evidence. Implementations must be safe for concurrent use.
type Verifier interface {
	VerifyFinding(ctx context.Context, f entity.Finding) (confirmed bool, err error)
}

// NopVerifier never confirms anything; findings keep their estimated
// confidence. Used whenever no verification backend is configured.
type NopVerifier struct{}

func (NopVerifier) VerifyFinding(context.Context, entity.Finding) (bool, error) {
	return false, nil
}
