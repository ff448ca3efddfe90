package bincodec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/supdto/internal/dto"
)

// DomainValue separates value digests from other hashes in the module.
const DomainValue = "supdto/value/v1"

// HashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The NUL separator keeps domain and data unambiguous.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of v: its self-describing encoding
// hashed under DomainValue. Values that differ in type or payload have
// different digests.
func Digest(v *dto.AnyValue) (string, error) {
	data, err := MarshalSelfDescribing(v)
	if err != nil {
		return "", fmt.Errorf("Digest: failed to marshal: %w", err)
	}
	return HashWithDomain(DomainValue, data), nil
}
