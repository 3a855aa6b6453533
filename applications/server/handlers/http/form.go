package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/donmikel/partstore/applications/server/domain"
	"github.com/donmikel/partstore/applications/server/multipart"
)

// FormOptions controls how request bodies are decoded.
type FormOptions struct {
	Decoder     *multipart.Config
	MaxBodySize int64 // 0 for no limit
}

// decodeForm decodes a multipart/form-data request body. The caller must
// close the returned body.
func decodeForm(w http.ResponseWriter, r *http.Request, opts FormOptions) (*multipart.Body, error) {
	boundary, err := multipart.BoundaryFromContentType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	src := r.Body
	if opts.MaxBodySize > 0 {
		src = http.MaxBytesReader(w, r.Body, opts.MaxBodySize)
	}

	body, err := multipart.Decode(src, boundary, opts.Decoder)
	if err != nil {
		return nil, fmt.Errorf("can't decode form: %w", err)
	}

	return body, nil
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case multipart.IsDecodeError(err),
		errors.Is(err, multipart.ErrAmbiguousOrMissingPart),
		errors.Is(err, errNoFilename):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
