package multipart

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// FakePart describes one part written by WriteFake.
type FakePart struct {
	Name     string
	Filename string // written only when not empty
	Header   Header // written after Content-Disposition
	Body     []byte
}

// RandomBoundary returns a fresh boundary token.
func RandomBoundary() string {
	var buf [30]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", buf[:])
}

// FormDataContentType returns the Content-Type value announcing token.
func FormDataContentType(token string) string {
	if strings.ContainsAny(token, `()<>@,;:\"/[]?= `) {
		token = `"` + token + `"`
	}
	return "multipart/form-data; boundary=" + token
}

// WriteFake encodes parts as a multipart/form-data message delimited by token.
func WriteFake(w io.Writer, token string, parts ...FakePart) error {
	b, err := newBoundary(token)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for i, p := range parts {
		if i == 0 {
			bw.Write(b.delimiter[len(crlf):])
		} else {
			bw.Write(b.delimiter)
		}
		bw.Write(crlf)

		fmt.Fprintf(bw, `%s: form-data; name="%s"`, contentDisposition, quoteEscaper.Replace(p.Name))
		if p.Filename != "" {
			fmt.Fprintf(bw, `; filename="%s"`, quoteEscaper.Replace(p.Filename))
		}
		bw.Write(crlf)
		for _, f := range p.Header {
			fmt.Fprintf(bw, "%s: %s\r\n", f.Name, f.Value)
		}
		bw.Write(crlf)
		bw.Write(p.Body)
	}

	if len(parts) == 0 {
		bw.Write(b.terminator()[len(crlf):])
	} else {
		bw.Write(b.terminator())
	}
	bw.Write(crlf)

	return bw.Flush()
}

// Fake encodes parts and decodes them back into a Body, for code that
// consumes a Body without an HTTP request around it.
func Fake(cfg *Config, parts ...FakePart) (*Body, error) {
	token := RandomBoundary()
	var buf bytes.Buffer
	if err := WriteFake(&buf, token, parts...); err != nil {
		return nil, fmt.Errorf("can't encode fake parts: %w", err)
	}
	return Decode(&buf, token, cfg)
}
