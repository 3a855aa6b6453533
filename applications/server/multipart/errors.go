package multipart

import "errors"

var (
	// ErrUnterminatedPart is returned when the source ends before a boundary
	// delimiter closes the current part (or before the opening delimiter).
	ErrUnterminatedPart = errors.New("multipart: unterminated part")
	// ErrMissingPartName is returned when a part has no Content-Disposition name parameter.
	ErrMissingPartName = errors.New("multipart: part has no name")
	// ErrMalformedContentType is returned for an absent or unusable boundary parameter.
	ErrMalformedContentType = errors.New("multipart: malformed content type")
	// ErrAmbiguousOrMissingPart is returned by Body.Single when the name does not
	// identify exactly one part.
	ErrAmbiguousOrMissingPart = errors.New("multipart: ambiguous or missing part")
	// ErrStoreClosed is returned when a part is read after its Body was closed.
	ErrStoreClosed = errors.New("multipart: store closed")

	ErrMalformedDelimiter = errors.New("multipart: malformed boundary delimiter line")
	ErrMalformedHeader    = errors.New("multipart: malformed part header")
	ErrHeaderTooLarge     = errors.New("multipart: part header too large")
)

// IsDecodeError reports whether err was caused by malformed input rather than
// by a failing reader or temp file.
func IsDecodeError(err error) bool {
	for _, target := range []error{
		ErrUnterminatedPart,
		ErrMissingPartName,
		ErrMalformedContentType,
		ErrMalformedDelimiter,
		ErrMalformedHeader,
		ErrHeaderTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
