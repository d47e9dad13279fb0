package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Digest identifies a reference file by content.
type Digest struct {
	SHA256 string
	Size   int64
}

// Short is the first 12 hex digits, used in snapshot versions.
func (d Digest) Short() string {
	if len(d.SHA256) < 12 {
		return d.SHA256
	}
	return d.SHA256[:12]
}

// FileDigest hashes the file at path in one pass and counts its bytes.
func FileDigest(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("open reference file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Digest{}, fmt.Errorf("hash reference file: %w", err)
	}
	return Digest{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// FileHash returns only the hex SHA-256 of the file at path.
func FileHash(path string) (string, error) {
	d, err := FileDigest(path)
	return d.SHA256, err
}
