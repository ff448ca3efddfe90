package dtojson

import (
	"bytes"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/supdto/internal/bincodec"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/visit"
)

// DomainType separates type fingerprints from value digests.
const DomainType = "supdto/type/v1"

// CanonicalType renders t as compact type JSON with every type and member
// name in Unicode NFC. Types that differ only in the normalization form of
// their names have the same canonical form.
func CanonicalType(t dto.AnyType) ([]byte, error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf, nil)
	if err := visit.Walk[dto.AnyType](t, &typeWriter{enc: enc, name: norm.NFC.String}); err != nil {
		return nil, serializeErr(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Fingerprint identifies t by the hex SHA-256 of its canonical form under
// DomainType. Structurally equal types have equal fingerprints.
func Fingerprint(t dto.AnyType) (string, error) {
	data, err := CanonicalType(t)
	if err != nil {
		return "", err
	}
	return bincodec.HashWithDomain(DomainType, data), nil
}
