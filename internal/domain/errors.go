package domain

import "errors"

// Sentinel errors for cache operations
var (
	// ErrItemNotFound indicates the requested media item does not exist
	ErrItemNotFound = errors.New("media item not found")

	// ErrServerOffline indicates the metadata source is unreachable
	ErrServerOffline = errors.New("metadata source is unreachable")

	// ErrAuthFailed indicates the API key or token was rejected
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrUnexpectedStatus indicates a non-success response from the source
	ErrUnexpectedStatus = errors.New("unexpected response from metadata source")

	// ErrCollectionsUnavailable indicates the collection listing failed and the refresh was aborted
	ErrCollectionsUnavailable = errors.New("collection listing failed")

	// ErrEmptyRefresh indicates a refresh produced no records; the previous snapshot is kept
	ErrEmptyRefresh = errors.New("refresh produced no items")

	// ErrCorruptSnapshot indicates the persisted snapshot could not be parsed
	ErrCorruptSnapshot = errors.New("persisted snapshot is corrupt")
)
