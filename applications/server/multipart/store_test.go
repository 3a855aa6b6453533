package multipart

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, threshold int64) (*store, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := mergeConfig(&Config{SpillThreshold: threshold, TempDir: dir})
	return newStore(cfg), dir
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestStoreStaysInMemoryBelowThreshold(t *testing.T) {
	s, dir := testStore(t, 16)
	defer s.Close()

	_, err := s.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = s.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, s.seal())

	assert.False(t, s.Spilled())
	assert.Equal(t, int64(16), s.Size())
	assert.Equal(t, 0, dirEntries(t, dir))

	got, err := io.ReadAll(io.NewSectionReader(s, 10, 6))
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got))
}

func TestStoreSpillKeepsEarlierRanges(t *testing.T) {
	s, dir := testStore(t, 8)
	defer s.Close()

	_, err := s.Write([]byte("first"))
	require.NoError(t, err)
	assert.False(t, s.Spilled())

	_, err = s.Write([]byte("second"))
	require.NoError(t, err)
	assert.True(t, s.Spilled())
	assert.Equal(t, 1, dirEntries(t, dir))

	_, err = s.Write([]byte("third"))
	require.NoError(t, err)
	require.NoError(t, s.seal())

	for _, tt := range []struct {
		off, n int64
		want   string
	}{
		{0, 5, "first"},
		{5, 6, "second"},
		{11, 5, "third"},
	} {
		got, err := io.ReadAll(io.NewSectionReader(s, tt.off, tt.n))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

func TestStoreReadPastEnd(t *testing.T) {
	s, _ := testStore(t, 1)
	defer s.Close()

	_, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, s.seal())

	buf := make([]byte, 8)
	n, err := s.ReadAt(buf, 1)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = s.ReadAt(buf, 3)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStoreSealedRejectsWrites(t *testing.T) {
	s, _ := testStore(t, 0)
	defer s.Close()

	require.NoError(t, s.seal())
	_, err := s.Write([]byte("late"))
	assert.ErrorIs(t, err, errSealed)
}

func TestStoreCloseRemovesSpillFile(t *testing.T) {
	s, dir := testStore(t, 1)

	_, err := s.Write([]byte("spilled bytes"))
	require.NoError(t, err)
	require.NoError(t, s.seal())
	require.Equal(t, 1, dirEntries(t, dir))

	require.NoError(t, s.Close())
	assert.Equal(t, 0, dirEntries(t, dir))

	assert.NoError(t, s.Close())

	_, err = s.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStoreCloseUnsealed(t *testing.T) {
	s, dir := testStore(t, 1)

	_, err := s.Write([]byte("abandoned"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, dirEntries(t, dir))
}
