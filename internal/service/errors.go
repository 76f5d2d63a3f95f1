package service

import (
	"errors"

	"github.com/jask/recruitmetrics/internal/metrics"
)

var (
	ErrNoData          = metrics.ErrNoData
	ErrUploadTooLarge  = errors.New("upload exceeds maximum size")
	ErrUnsupportedFile = errors.New("unsupported file type: only .csv uploads are accepted")
	ErrMissingColumns  = errors.New("missing required columns")
	ErrInvalidWeeks    = errors.New("weeks out of range")
)

// EmptyMessage is shown wherever a view needs data and none has been imported.
const EmptyMessage = "No data available. Please upload some data to get started."
