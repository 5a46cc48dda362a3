package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("quota exceeded")

	// Editor input errors. They never change session state.
	ErrNoImage           = errors.New("no image uploaded")
	ErrNotImage          = errors.New("file is not an image")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoFile            = errors.New("no file provided")
	ErrUnknownEffect     = errors.New("unknown effect")
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrNoPendingPrompt   = errors.New("no effect awaiting a prompt")
	ErrNothingToExport   = errors.New("no processed image to export")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrNoComparison      = errors.New("no processed image to compare")

	// Upload transport failures, one per user-facing message.
	ErrUploadInvalidRequest = errors.New("upload: invalid request")
	ErrUploadServerFault    = errors.New("upload: server fault")
	ErrUploadNetwork        = errors.New("upload: network failure")
	ErrUploadFailed         = errors.New("upload failed")

	ErrProcessingFailed = errors.New("processing failed")
	ErrCheckoutFailed   = errors.New("checkout failed")
)

// LimitReachedError is returned when consuming quota would exceed the plan limit.
// It carries the counts observed at rejection time.
type LimitReachedError struct {
	Quota UsageQuota
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("usage limit reached (%d/%d)", e.Quota.UsageCount, e.Quota.UsageLimit)
}

func (e *LimitReachedError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
