package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/supdto/internal/bincodec"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// ErrEmptyKey is returned by Put for an empty snapshot key.
var ErrEmptyKey = errors.New("empty snapshot key")

// Snapshot is one archived value.
type Snapshot struct {
	ID          string
	Key         string
	Seq         int64
	Fingerprint string
	Digest      string
	Value       *dto.AnyValue
}

// canonicalType returns the fingerprint and canonical JSON of t. Types
// whose names change under NFC normalisation are rejected: reading them
// back would yield a different type and break digest verification.
func canonicalType(t dto.AnyType) (string, []byte, error) {
	def, err := dtojson.CanonicalType(t)
	if err != nil {
		return "", nil, err
	}
	back, err := dtojson.TypeFromJSON(nil, def)
	if err != nil {
		return "", nil, err
	}
	if !back.Equal(t) {
		return "", nil, dto.NewError(dto.KindInvalidOperation, "store",
			"type %s has names that are not NFC-normalised", t)
	}
	return bincodec.HashWithDomain(dtojson.DomainType, def), def, nil
}

// PutType stores t and returns its fingerprint.
// Uses ON CONFLICT(fingerprint) DO NOTHING: storing a type twice is a no-op.
func (s *Store) PutType(ctx context.Context, t dto.AnyType) (string, error) {
	fp, def, err := canonicalType(t)
	if err != nil {
		return "", fmt.Errorf("write type: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, insertTypeSQL, fp, t.Name(), string(def)); err != nil {
		return "", fmt.Errorf("write type: %w", err)
	}
	return fp, nil
}

const insertTypeSQL = `
	INSERT INTO types (fingerprint, name, definition)
	VALUES (?, ?, ?)
	ON CONFLICT(fingerprint) DO NOTHING
`

// Put appends v as the next snapshot of key. The type row and the snapshot
// row are written in one transaction; seq is one past the key's current
// maximum.
func (s *Store) Put(ctx context.Context, key string, v *dto.AnyValue) (Snapshot, error) {
	if key == "" {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", ErrEmptyKey)
	}
	if v == nil {
		return Snapshot{}, fmt.Errorf("write snapshot %q: nil value", key)
	}

	t := v.Type()
	fp, def, err := canonicalType(t)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot %q: %w", key, err)
	}
	payload, err := bincodec.Marshal(v)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot %q: %w", key, err)
	}
	digest, err := bincodec.Digest(v)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot %q: %w", key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, insertTypeSQL, fp, t.Name(), string(def)); err != nil {
		return Snapshot{}, fmt.Errorf("write type: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots WHERE key = ?`, key,
	).Scan(&seq); err != nil {
		return Snapshot{}, fmt.Errorf("next seq for %q: %w", key, err)
	}

	snap := Snapshot{
		ID:          s.ids.Generate(),
		Key:         key,
		Seq:         seq,
		Fingerprint: fp,
		Digest:      digest,
		Value:       v,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, key, seq, type_fingerprint, payload, digest)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Key, snap.Seq, snap.Fingerprint, payload, snap.Digest)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("snapshot archived",
		"key", key,
		"seq", seq,
		"type", t.String(),
		"bytes", len(payload),
	)
	s.logger.Debug("snapshot ids", "id", snap.ID, "fingerprint", fp, "digest", digest)
	return snap, nil
}
