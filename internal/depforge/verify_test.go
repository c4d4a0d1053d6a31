package depforge

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

// sha256("hello\n")
const helloSHA256 = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVerify_SHA256(t *testing.T) {
	t.Parallel()

	path := writeFile(t, filepath.Join(t.TempDir(), "hello.txt"), "hello\n")

	ok, err := Verify(path, helloSHA256)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(path, strings.ToUpper(helloSHA256))
	require.NoError(t, err)
	require.True(t, ok, "hex comparison is case-insensitive")

	ok, err = Verify(path, "sha256:"+helloSHA256)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_BLAKE3(t *testing.T) {
	t.Parallel()

	path := writeFile(t, filepath.Join(t.TempDir(), "hello.txt"), "hello\n")

	want := blake3.Sum256([]byte("hello\n"))
	sum, err := Digest(path, AlgoBLAKE3)
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(want[:]), sum)

	ok, err := Verify(path, "blake3:"+sum)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_Mismatch(t *testing.T) {
	t.Parallel()

	path := writeFile(t, filepath.Join(t.TempDir(), "hello.txt"), "hello world\n")

	ok, err := Verify(path, helloSHA256)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerify_LargeFileStreams(t *testing.T) {
	t.Parallel()

	// Spans several read chunks.
	content := strings.Repeat("0123456789abcdef", 3*digestChunkSize/16+7)
	path := writeFile(t, filepath.Join(t.TempDir(), "big.bin"), content)

	sum, err := Digest(path, AlgoSHA256)
	require.NoError(t, err)
	ok, err := Verify(path, sum)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Verify(filepath.Join(t.TempDir(), "absent"), helloSHA256)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseDigest_Rejects(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{
		"",
		"not-hex",
		helloSHA256[:10],
		"md5:" + helloSHA256,
	} {
		_, _, err := parseDigest(bad)
		require.Error(t, err, "digest %q", bad)
	}
}

// sizeRecorder records the buffer length of every Read.
type sizeRecorder struct {
	r     io.Reader
	sizes []int
}

func (s *sizeRecorder) Read(p []byte) (int, error) {
	s.sizes = append(s.sizes, len(p))
	return s.r.Read(p)
}

func TestHashChunks_ReadsFixedSizeChunks(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("x"), 3*digestChunkSize+7)
	rec := &sizeRecorder{r: bytes.NewReader(data)}
	h := sha256.New()
	require.NoError(t, hashChunks(h, rec))

	want := sha256.Sum256(data)
	require.Equal(t, want[:], h.Sum(nil))
	require.NotEmpty(t, rec.sizes)
	for _, n := range rec.sizes {
		require.Equal(t, digestChunkSize, n)
	}
}
