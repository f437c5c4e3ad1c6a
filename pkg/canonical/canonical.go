// Package canonical produces deterministic JSON encodings and content hashes.
//
// Canonicalization follows RFC 8785 (JSON Canonicalization Scheme): object
// keys are sorted at every level, array order is preserved, and numbers and
// strings are serialized in a single normal form. Two documents that differ
// only in key order therefore hash identically.
package canonical

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strings"

	"github.com/gowebpki/jcs"
)

// Supported algorithm and encoding identifiers, stored alongside each hash.
const (
	AlgoSHA256 = "sha256"
	AlgoSHA512 = "sha512"

	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

// Canonicalize serializes document (any JSON-marshalable value, or raw JSON
// bytes) into its canonical byte form.
func Canonicalize(document interface{}) ([]byte, error) {
	var raw []byte
	switch v := document.(type) {
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		encoded, err := json.Marshal(document)
		if err != nil {
			return nil, fmt.Errorf("marshal document: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize document: %w", err)
	}
	return out, nil
}

// Hash returns the SHA-256 hex digest of the canonical form of document.
func Hash(document interface{}) (string, error) {
	return HashWith(AlgoSHA256, EncodingHex, document)
}

// HashWith hashes the canonical form of document with the named algorithm
// and encoding.
func HashWith(algo, encoding string, document interface{}) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	canon, err := Canonicalize(document)
	if err != nil {
		return "", err
	}
	_, _ = h.Write(canon)
	sum := h.Sum(nil)

	switch strings.ToLower(encoding) {
	case EncodingHex, "":
		return hex.EncodeToString(sum), nil
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(sum), nil
	default:
		return "", fmt.Errorf("unsupported hash encoding %q", encoding)
	}
}

// Supported reports whether algo/encoding can be computed by HashWith.
func Supported(algo, encoding string) bool {
	if _, err := newHash(algo); err != nil {
		return false
	}
	switch strings.ToLower(encoding) {
	case EncodingHex, EncodingBase64:
		return true
	}
	return false
}

func newHash(algo string) (hash.Hash, error) {
	switch strings.ToLower(algo) {
	case AlgoSHA256, "":
		return sha256.New(), nil
	case AlgoSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}
