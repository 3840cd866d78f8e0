package errors

import "errors"

// Site and transport errors
var (
	ErrNetwork          = errors.New("subdivx: network error (timeout or connection failure)")
	ErrUnexpectedStatus = errors.New("subdivx: unexpected HTTP status")
	ErrInvalidResponse  = errors.New("subdivx: invalid response from site")
	ErrSessionStale     = errors.New("subdivx: session is stale, the saved session was removed")
	ErrNoResults        = errors.New("subdivx: no results found")
	ErrNoFileAtMirrors  = errors.New("subdivx: no subtitle archive available at any mirror")

	// Local flow errors
	ErrPermission          = errors.New("fileops: permission denied")
	ErrNoSubtitleInArchive = errors.New("download: archive contains no subtitle files")
	ErrUserExit            = errors.New("user exit")
)

// IsInformational reports whether err ends the program without being a
// failure (exit status 0).
func IsInformational(err error) bool {
	return errors.Is(err, ErrNoResults) ||
		errors.Is(err, ErrNoFileAtMirrors) ||
		errors.Is(err, ErrUserExit)
}
