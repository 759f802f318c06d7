package gateway

import "errors"

// Guard-chain failures surfaced to callers. Each corresponds to one stage
// of the chain; none are fatal to the process.
var (
	// ErrRateLimited rejects a call exceeding the per-operation window.
	// Retryable after the window passes.
	ErrRateLimited = errors.New("too many requests for this operation, try again later")

	// ErrPayloadTooLarge rejects content or an on-disk file above MaxFileSize.
	ErrPayloadTooLarge = errors.New("file size exceeds the maximum")

	// ErrMissingExtension rejects paths without a file extension.
	ErrMissingExtension = errors.New("file must have an extension")

	// ErrDisallowedExtension rejects extensions outside the operation's
	// allowed set.
	ErrDisallowedExtension = errors.New("file extension not allowed for this operation")

	// ErrPathNotAllowed rejects paths resolving outside every allowed root.
	ErrPathNotAllowed = errors.New("path must be inside the Downloads, Documents or Desktop folder")
)
