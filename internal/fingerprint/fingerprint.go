// Package fingerprint derives identities for model files. The cheap
// identity samples two fixed windows instead of hashing multi-gigabyte
// files in full; the strong identity streams the whole file and is
// computed only on explicit request.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// headOffset is where the head sample window starts.
	headOffset = 0x100000
	// sampleSize is the size of each sample window.
	sampleSize = 0x10000
	// idLength is the number of hex characters kept from the digest.
	idLength = 16
	// chunkSize is the read size used when streaming a full digest.
	chunkSize = 65536
)

// Quick computes the sampled identity of a file: 64 KiB starting at the
// 1 MiB offset plus the final 64 KiB, digested together, first 16 hex
// characters. Files shorter than one sample window fail the tail seek and
// return an error; the caller is expected to fall back to PathID. Files
// between 64 KiB and 1 MiB yield an empty head sample, which is fine — the
// identity is still content-derived.
func Quick(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(headOffset, io.SeekStart); err != nil {
		return "", fmt.Errorf("seeking head sample: %w", err)
	}
	head, err := readSample(r)
	if err != nil {
		return "", fmt.Errorf("reading head sample: %w", err)
	}

	if _, err := r.Seek(-sampleSize, io.SeekEnd); err != nil {
		return "", fmt.Errorf("seeking tail sample: %w", err)
	}
	tail, err := readSample(r)
	if err != nil {
		return "", fmt.Errorf("reading tail sample: %w", err)
	}

	h := sha256.New()
	h.Write(head)
	h.Write(tail)
	return hex.EncodeToString(h.Sum(nil))[:idLength], nil
}

// PathID is the fallback identity for files that cannot be sampled: a
// digest of the path string itself. Such files are identified by location,
// not content — a moved-but-unchanged small file becomes a new entity.
func PathID(path string) string {
	h := md5.Sum([]byte(path))
	return hex.EncodeToString(h[:])[:idLength]
}

// Full streams the entire file through SHA-256 in bounded-size chunks and
// returns the complete hex digest.
func Full(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readSample reads up to one sample window. A short read or immediate EOF
// is not an error — it mirrors reading near the end of the file.
func readSample(r io.Reader) ([]byte, error) {
	buf := make([]byte, sampleSize)
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}
