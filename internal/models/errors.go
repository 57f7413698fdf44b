package models

import "errors"

// Error kinds for the pipeline. Stages wrap these with %w so callers can
// dispatch on kind with errors.Is.
var (
	ErrInitialization = errors.New("initialization failed")
	ErrEmbedding      = errors.New("embedding failed")
	ErrRetrieval      = errors.New("retrieval failed")
	ErrContextBuild   = errors.New("context build failed")
	ErrGeneration     = errors.New("generation failed")
	ErrStorage        = errors.New("storage failed")
)
