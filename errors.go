package rankcore

import "github.com/polimaq/rankcore/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyCorpus     = domain.ErrEmptyCorpus
	ErrInvalidDocument = domain.ErrInvalidDocument
	ErrProvider        = domain.ErrProvider
)
