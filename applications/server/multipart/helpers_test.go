package multipart

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkReader returns its chunks one Read at a time, never joining two of them.
type chunkReader struct {
	chunks [][]byte
}

func splitAt(data []byte, offsets ...int) *chunkReader {
	r := &chunkReader{}
	prev := 0
	for _, off := range offsets {
		r.chunks = append(r.chunks, data[prev:off])
		prev = off
	}
	r.chunks = append(r.chunks, data[prev:])
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.chunks) > 0 && len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	return n, nil
}

type decodedPart struct {
	Name     string
	Filename string
	Body     string
}

func decodeAll(t *testing.T, src io.Reader, token string, cfg *Config) []decodedPart {
	t.Helper()

	body, err := Decode(src, token, cfg)
	require.NoError(t, err)
	defer body.Close()

	var parts []decodedPart
	for p := range body.Parts() {
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		require.Equal(t, p.Size(), int64(len(data)))
		filename, _ := p.Filename()
		parts = append(parts, decodedPart{Name: p.Name(), Filename: filename, Body: string(data)})
	}
	return parts
}

func readPart(t *testing.T, p *Part) string {
	t.Helper()
	data, err := io.ReadAll(p)
	require.NoError(t, err)
	return string(data)
}
