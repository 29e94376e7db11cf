// Package fingerprint computes content hashes for tokenizer artifacts so
// peers can verify two services apply byte-identical tokenization rules.
// Digests are md5 because that is what the training notebooks publish;
// the algorithm is part of the cross-service contract.
package fingerprint

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
)

// Backend hashes the canonical serialized form of a tokenizer backend.
// The raw bytes are the serialized backend state (a tokenizer.json
// document); they are compacted first so formatting differences between
// otherwise identical artifacts do not change the digest.
func Backend(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return digest(raw)
	}
	return digest(buf.Bytes())
}

// File hashes a file's raw bytes. The boolean is false when the file cannot
// be read; fingerprints are diagnostic only, so read failures never surface
// as errors.
func File(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return digest(data), true
}

func digest(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
