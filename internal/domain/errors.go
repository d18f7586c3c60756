package domain

import "errors"

var (
	// ErrEmptyCorpus signals that the corpus had no usable documents at index build.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrInvalidDocument signals a corpus record that failed boundary validation.
	ErrInvalidDocument = errors.New("invalid corpus document")
	// ErrProvider signals an embedding or cross-encoder provider failure.
	ErrProvider = errors.New("provider error")
	// ErrEngineTimeout signals that an engine exceeded its deadline.
	ErrEngineTimeout = errors.New("engine timeout")
	// ErrEngineNotReady signals a search issued before the index was built.
	ErrEngineNotReady = errors.New("engine not ready")
)
