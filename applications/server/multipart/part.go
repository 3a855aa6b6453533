package multipart

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

// Part is a read handle on one part of a Body. Every lookup returns a fresh
// Part with its own offset; all of them read the same bytes from the Body's
// store. Closing a Part only affects that handle.
type Part struct {
	rec     *record
	store   *store
	section *io.SectionReader
	closed  bool
}

func newPart(rec *record, st *store) *Part {
	return &Part{
		rec:     rec,
		store:   st,
		section: io.NewSectionReader(st, rec.start, rec.end-rec.start),
	}
}

// Name returns the Content-Disposition name parameter.
func (p *Part) Name() string {
	return p.rec.name
}

// Filename returns the Content-Disposition filename parameter and whether it
// was present.
func (p *Part) Filename() (string, bool) {
	return p.rec.filename, p.rec.hasFilename
}

// ContentType returns the part's Content-Type header, or "" when absent.
func (p *Part) ContentType() string {
	return p.rec.header.Get(contentType)
}

// Size returns the exact number of body bytes.
func (p *Part) Size() int64 {
	return p.rec.end - p.rec.start
}

// Header returns the part's headers in wire order with a Content-Length
// field holding the observed body size appended. A Content-Length sent by
// the client is replaced.
func (p *Part) Header() Header {
	h := slices.Clone(p.rec.header)
	if h.Has(contentLength) {
		h = h.without(contentLength)
	}
	return append(h, HeaderField{
		Name:  contentLength,
		Value: strconv.FormatInt(p.Size(), 10),
	})
}

func (p *Part) Read(b []byte) (int, error) {
	if err := p.usable(); err != nil {
		return 0, err
	}
	return p.section.Read(b)
}

func (p *Part) ReadAt(b []byte, off int64) (int, error) {
	if err := p.usable(); err != nil {
		return 0, err
	}
	return p.section.ReadAt(b, off)
}

// Seek moves the read offset. Seeking to the start reads the body again.
func (p *Part) Seek(offset int64, whence int) (int64, error) {
	if err := p.usable(); err != nil {
		return 0, err
	}
	return p.section.Seek(offset, whence)
}

// Close marks this handle closed. It never fails and leaves the store alone.
func (p *Part) Close() error {
	p.closed = true
	return nil
}

func (p *Part) usable() error {
	if p.store.isClosed() {
		return ErrStoreClosed
	}
	if p.closed {
		return fmt.Errorf("multipart: part %q: %w", p.rec.name, os.ErrClosed)
	}
	return nil
}
