package depforge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"lukechampine.com/blake3"
)

// DigestAlgo names a supported content hash.
type DigestAlgo string

const (
	AlgoSHA256 DigestAlgo = "sha256"
	AlgoBLAKE3 DigestAlgo = "blake3"
)

// digestChunkSize is the read size used when streaming files through a hash.
const digestChunkSize = 64 * 1024

func (a DigestAlgo) new() (hash.Hash, error) {
	switch a {
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoBLAKE3:
		return blake3.New(32, nil), nil
	}
	return nil, fmt.Errorf("unsupported digest algorithm %q", a)
}

// parseDigest splits an expected digest into algorithm and lowercase hex.
// A bare hex string is SHA-256.
func parseDigest(expected string) (DigestAlgo, string, error) {
	algo := AlgoSHA256
	sum := strings.TrimSpace(expected)
	if prefix, rest, ok := strings.Cut(sum, ":"); ok {
		algo = DigestAlgo(strings.ToLower(prefix))
		sum = rest
	}
	if _, err := algo.new(); err != nil {
		return "", "", err
	}
	sum = strings.ToLower(sum)
	raw, err := hex.DecodeString(sum)
	if err != nil {
		return "", "", fmt.Errorf("digest %q is not hex: %w", expected, err)
	}
	if len(raw) != 32 {
		return "", "", fmt.Errorf("digest %q: want 32 bytes, got %d", expected, len(raw))
	}
	return algo, sum, nil
}

// Digest streams the file at path through algo and returns the hex sum.
func Digest(path string, algo DigestAlgo) (string, error) {
	h, err := algo.new()
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := hashChunks(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashChunks feeds r into h one digestChunkSize read at a time.
func hashChunks(h hash.Hash, r io.Reader) error {
	buf := make([]byte, digestChunkSize)
	for {
		n, err := r.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Verify reports whether the file at path matches expected.
func Verify(path, expected string) (bool, error) {
	_, ok, err := verifyDigest(path, expected)
	return ok, err
}

// verifyDigest also returns the computed sum for error reporting.
func verifyDigest(path, expected string) (string, bool, error) {
	algo, want, err := parseDigest(expected)
	if err != nil {
		return "", false, err
	}
	got, err := Digest(path, algo)
	if err != nil {
		return "", false, err
	}
	return got, got == want, nil
}
