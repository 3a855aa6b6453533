package multipart

import (
	"strings"
)

const (
	contentDisposition = "Content-Disposition"
	contentLength      = "Content-Length"
	contentType        = "Content-Type"
)

// HeaderField is a single header line of a part, as it appeared on the wire.
type HeaderField struct {
	Name  string
	Value string
}

// Header is the ordered header block of a part. Lookups compare field names
// case-insensitively.
type Header []HeaderField

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns all values for name in header order.
func (h Header) Values(name string) []string {
	var values []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// Has reports whether a field called name is present.
func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Lines renders the header as "Name: value" lines.
func (h Header) Lines() []string {
	lines := make([]string, 0, len(h))
	for _, f := range h {
		lines = append(lines, f.Name+": "+f.Value)
	}
	return lines
}

func (h Header) without(name string) Header {
	out := make(Header, 0, len(h)+1)
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	return out
}
