package services

import "errors"

// Service errors
var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrNotReady       = errors.New("primary dataset not loaded")
)
