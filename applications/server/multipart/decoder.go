package multipart

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"golang.org/x/net/http/httpguts"
)

// record is one decoded part: its headers and the [start,end) range of its
// body in the store.
type record struct {
	name        string
	filename    string
	hasFilename bool
	header      Header
	start, end  int64
}

type decoder struct {
	cfg     *Config
	cur     *cursor
	match   *matcher
	store   *store
	records []record
}

// Decode reads a multipart/form-data message from src in a single forward
// pass. token is the boundary parameter of the message's Content-Type.
// Part bodies are kept in memory until cfg.SpillThreshold is exceeded and in
// a temp file after that. A nil cfg selects DefaultConfig.
//
// A delimiter line must be "--" token followed by optional whitespace and
// CRLF, or by "--". Body or preamble bytes "\r\n--" token followed by
// anything else are rejected with ErrMalformedDelimiter.
//
// Either every part is decoded or an error is returned; on error nothing is
// left on disk. The caller must Close the returned Body.
func Decode(src io.Reader, token string, cfg *Config) (_ *Body, err error) {
	cfg = mergeConfig(cfg)
	b, err := newBoundary(token)
	if err != nil {
		return nil, err
	}

	d := &decoder{
		cfg:   cfg,
		cur:   newCursor(src, cfg.BufferSize),
		match: newMatcher(b.delimiter),
		store: newStore(cfg),
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := d.store.Close(); cerr != nil {
			level.Warn(cfg.Logger).Log("msg", "can't release multipart store", "err", cerr)
		}
	}()

	if err = d.run(); err != nil {
		return nil, err
	}
	if err = d.store.seal(); err != nil {
		return nil, err
	}

	level.Debug(cfg.Logger).Log("msg", "multipart body decoded",
		"parts", len(d.records),
		"read", humanize.IBytes(uint64(d.cur.read)),
		"stored", humanize.IBytes(uint64(d.store.Size())),
		"spilled", d.store.Spilled(),
	)

	return newBody(d.store, d.records), nil
}

func (d *decoder) run() error {
	// Preamble before the first delimiter is discarded.
	if _, err := d.cur.copyUntil(io.Discard, d.match); err != nil {
		return fmt.Errorf("can't find opening boundary: %w", err)
	}

	for {
		last, err := d.cur.delimiterTail()
		if err != nil {
			return fmt.Errorf("can't read boundary line after part %d: %w", len(d.records), err)
		}
		if last {
			return nil
		}

		rec, err := d.readHeaders()
		if err != nil {
			return fmt.Errorf("can't read headers of part %d: %w", len(d.records), err)
		}

		rec.start = d.store.Size()
		if _, err = d.cur.copyUntil(d.store, d.match); err != nil {
			return fmt.Errorf("can't read body of part %q: %w", rec.name, err)
		}
		rec.end = d.store.Size()

		d.records = append(d.records, rec)
	}
}

func (d *decoder) readHeaders() (record, error) {
	var (
		rec   record
		total int
	)
	for {
		line, err := d.cur.readLine()
		if err != nil {
			return rec, err
		}
		if len(line) == 0 {
			break
		}

		total += len(line) + len(crlf)
		if total > d.cfg.MaxHeaderBytes {
			return rec, fmt.Errorf("%w: more than %d bytes", ErrHeaderTooLarge, d.cfg.MaxHeaderBytes)
		}

		// Obsolete line folding continues the previous field.
		if line[0] == ' ' || line[0] == '\t' {
			if len(rec.header) == 0 {
				return rec, fmt.Errorf("%w: continuation line before any field", ErrMalformedHeader)
			}
			value := strings.Trim(string(line), " \t")
			if !httpguts.ValidHeaderFieldValue(value) {
				return rec, fmt.Errorf("%w: invalid continuation %q", ErrMalformedHeader, value)
			}
			last := &rec.header[len(rec.header)-1]
			last.Value += " " + value
			continue
		}

		field, err := parseHeaderField(line)
		if err != nil {
			return rec, err
		}
		rec.header = append(rec.header, field)
	}

	dispositions := rec.header.Values(contentDisposition)
	if len(dispositions) == 0 {
		return rec, fmt.Errorf("%w: no %s header", ErrMissingPartName, contentDisposition)
	}
	if len(dispositions) > 1 {
		return rec, fmt.Errorf("%w: %d %s fields", ErrMalformedHeader, len(dispositions), contentDisposition)
	}
	disposition := dispositions[0]
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMissingPartName, err)
	}
	rec.name = params["name"]
	if rec.name == "" {
		return rec, fmt.Errorf("%w: %s is %q", ErrMissingPartName, contentDisposition, disposition)
	}
	rec.filename, rec.hasFilename = params["filename"]

	return rec, nil
}

func parseHeaderField(line []byte) (HeaderField, error) {
	i := bytes.IndexByte(line, ':')
	if i <= 0 {
		return HeaderField{}, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	name := string(line[:i])
	if !httpguts.ValidHeaderFieldName(name) {
		return HeaderField{}, fmt.Errorf("%w: invalid field name %q", ErrMalformedHeader, name)
	}
	value := strings.Trim(string(line[i+1:]), " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return HeaderField{}, fmt.Errorf("%w: invalid value for %s", ErrMalformedHeader, name)
	}
	return HeaderField{Name: name, Value: value}, nil
}
