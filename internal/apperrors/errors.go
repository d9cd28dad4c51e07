package apperrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// ErrUnsupportedSite is returned when no registry entry matches the playback URL.
type ErrUnsupportedSite struct {
	URL string
}

// Error implements the error interface.
func (e *ErrUnsupportedSite) Error() string {
	return fmt.Sprintf("unsupported site: %s", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrUnsupportedSite) Is(target error) bool {
	_, ok := target.(*ErrUnsupportedSite)
	return ok
}

// ErrExtractorUnavailable is returned when a site is recognized but its extractor is not built in.
type ErrExtractorUnavailable struct {
	Platform string
}

// Error implements the error interface.
func (e *ErrExtractorUnavailable) Error() string {
	return fmt.Sprintf("no extractor available for platform %s", e.Platform)
}

// Is allows for error checking with errors.Is().
func (e *ErrExtractorUnavailable) Is(target error) bool {
	_, ok := target.(*ErrExtractorUnavailable)
	return ok
}

// ErrUnsupportedMethod is a programmer error: the HTTP wrapper only speaks GET, POST, PUT and DELETE.
type ErrUnsupportedMethod struct {
	Method string
}

// Error implements the error interface.
func (e *ErrUnsupportedMethod) Error() string {
	return fmt.Sprintf("unsupported HTTP method %q", e.Method)
}

// Is allows for error checking with errors.Is().
func (e *ErrUnsupportedMethod) Is(target error) bool {
	_, ok := target.(*ErrUnsupportedMethod)
	return ok
}

// ErrHTTPStatus is returned for any non-success HTTP response. Body holds the raw response body.
type ErrHTTPStatus struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *ErrHTTPStatus) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.StatusCode)
}

// Is allows for error checking with errors.Is().
func (e *ErrHTTPStatus) Is(target error) bool {
	_, ok := target.(*ErrHTTPStatus)
	return ok
}

// Retryable reports whether the status is worth another attempt (429 and 5xx).
func (e *ErrHTTPStatus) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ErrLanguageUnavailable is returned when none of the requested languages is offered for a title.
type ErrLanguageUnavailable struct {
	Requested []string
	Available []string
}

// Error implements the error interface.
func (e *ErrLanguageUnavailable) Error() string {
	return fmt.Sprintf("none of the requested languages [%s] is available, available languages: [%s]",
		strings.Join(e.Requested, ", "), strings.Join(e.Available, ", "))
}

// Is allows for error checking with errors.Is().
func (e *ErrLanguageUnavailable) Is(target error) bool {
	_, ok := target.(*ErrLanguageUnavailable)
	return ok
}

// ErrNoSubtitles is returned when a title carries no embedded subtitles at all.
type ErrNoSubtitles struct {
	Title string
}

// Error implements the error interface.
func (e *ErrNoSubtitles) Error() string {
	if e.Title == "" {
		return "no embedded subtitles"
	}
	return fmt.Sprintf("no embedded subtitles in %s", e.Title)
}

// Is allows for error checking with errors.Is().
func (e *ErrNoSubtitles) Is(target error) bool {
	_, ok := target.(*ErrNoSubtitles)
	return ok
}

// ErrRegionBlocked is returned when the platform refuses the title for the requester's region.
type ErrRegionBlocked struct {
	Title string
}

// Error implements the error interface.
func (e *ErrRegionBlocked) Error() string {
	return fmt.Sprintf("%s is not available in your region", e.Title)
}

// Is allows for error checking with errors.Is().
func (e *ErrRegionBlocked) Is(target error) bool {
	_, ok := target.(*ErrRegionBlocked)
	return ok
}

// ErrPayLimit is returned when the platform answers "pay limit" and the run is configured to abort on it.
type ErrPayLimit struct {
	VideoID string
}

// Error implements the error interface.
func (e *ErrPayLimit) Error() string {
	return fmt.Sprintf("pay limit reached for video %s", e.VideoID)
}

// Is allows for error checking with errors.Is().
func (e *ErrPayLimit) Is(target error) bool {
	_, ok := target.(*ErrPayLimit)
	return ok
}

// ErrNetworkTimeout is returned when the browser never issued a request matching the awaited pattern.
type ErrNetworkTimeout struct {
	Pattern string
	Ticks   int
}

// Error implements the error interface.
func (e *ErrNetworkTimeout) Error() string {
	return fmt.Sprintf("no network request matching %q after %d polls", e.Pattern, e.Ticks)
}

// Is allows for error checking with errors.Is().
func (e *ErrNetworkTimeout) Is(target error) bool {
	_, ok := target.(*ErrNetworkTimeout)
	return ok
}

// ErrUnexpectedResponse is returned when a platform answers with a payload we cannot interpret.
type ErrUnexpectedResponse struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *ErrUnexpectedResponse) Error() string {
	return fmt.Sprintf("unexpected response from %s: %s", e.URL, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrUnexpectedResponse) Is(target error) bool {
	_, ok := target.(*ErrUnexpectedResponse)
	return ok
}

// Exit codes used by the command line entry point.
const (
	ExitOK          = 0
	ExitFatal       = 1
	ExitInterrupted = 130
)

// IsGraceful reports whether err ends the run without being a failure: the title is
// region locked or carries no subtitles, so there is simply nothing to do.
func IsGraceful(err error) bool {
	return errors.Is(err, &ErrRegionBlocked{}) || errors.Is(err, &ErrNoSubtitles{})
}

// ExitCode maps a run result onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case IsGraceful(err):
		return ExitOK
	default:
		return ExitFatal
	}
}

// ErrSignerUnavailable is returned when the request signer cannot be loaded or refuses the input.
type ErrSignerUnavailable struct {
	Reason string
}

// Error implements the error interface.
func (e *ErrSignerUnavailable) Error() string {
	return fmt.Sprintf("request signer unavailable: %s", e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrSignerUnavailable) Is(target error) bool {
	_, ok := target.(*ErrSignerUnavailable)
	return ok
}
