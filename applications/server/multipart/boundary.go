package multipart

import (
	"fmt"
	"mime"
	"strings"
)

const maxBoundaryLen = 70

// boundary holds the byte forms of a boundary token.
// The terminator is the delimiter followed by "--", so the scanner only ever
// searches for the delimiter and the caller looks at the two bytes after it.
type boundary struct {
	token     string
	delimiter []byte // "\r\n--" token
}

func newBoundary(token string) (boundary, error) {
	if err := validateBoundary(token); err != nil {
		return boundary{}, err
	}
	return boundary{
		token:     token,
		delimiter: []byte("\r\n--" + token),
	}, nil
}

func (b boundary) terminator() []byte {
	return append(b.delimiter[:len(b.delimiter):len(b.delimiter)], '-', '-')
}

// validateBoundary checks token against the RFC 2046 grammar:
//
//	boundary := 0*69<bchars> bcharsnospace
func validateBoundary(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty boundary", ErrMalformedContentType)
	}
	if len(token) > maxBoundaryLen {
		return fmt.Errorf("%w: boundary longer than %d bytes", ErrMalformedContentType, maxBoundaryLen)
	}
	if token[len(token)-1] == ' ' {
		return fmt.Errorf("%w: boundary ends with a space", ErrMalformedContentType)
	}
	for i := 0; i < len(token); i++ {
		if !isBChar(token[i]) {
			return fmt.Errorf("%w: invalid boundary byte %q", ErrMalformedContentType, token[i])
		}
	}
	return nil
}

func isBChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	return strings.IndexByte("'()+_,-./:=? ", c) >= 0
}

// BoundaryFromContentType extracts the boundary parameter of a
// multipart/form-data Content-Type header value.
func BoundaryFromContentType(contentType string) (string, error) {
	if contentType == "" {
		return "", fmt.Errorf("%w: no content type", ErrMalformedContentType)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedContentType, err)
	}
	if mediaType != "multipart/form-data" {
		return "", fmt.Errorf("%w: unexpected media type %q", ErrMalformedContentType, mediaType)
	}
	token, ok := params["boundary"]
	if !ok {
		return "", fmt.Errorf("%w: no boundary parameter", ErrMalformedContentType)
	}
	if err = validateBoundary(token); err != nil {
		return "", err
	}
	return token, nil
}
