package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/supdto/internal/bincodec"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// ErrDigestMismatch is returned when a stored payload no longer hashes to
// the digest recorded for it.
var ErrDigestMismatch = errors.New("snapshot digest mismatch")

// GetType returns the type stored under fingerprint.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetType(ctx context.Context, fingerprint string) (dto.AnyType, error) {
	var def string
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM types WHERE fingerprint = ?`, fingerprint,
	).Scan(&def)
	if err != nil {
		return dto.EmptyType(), fmt.Errorf("read type %s: %w", fingerprint, err)
	}
	t, err := dtojson.TypeFromJSON(nil, []byte(def))
	if err != nil {
		return dto.EmptyType(), fmt.Errorf("read type %s: %w", fingerprint, err)
	}
	return t, nil
}

// Latest returns the snapshot of key with the highest seq.
// Returns sql.ErrNoRows if the key has no snapshots.
func (s *Store) Latest(ctx context.Context, key string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, seq, type_fingerprint, payload, digest
		FROM snapshots
		WHERE key = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, key)

	snap, payload, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read latest %q: %w", key, err)
	}
	if err := s.decode(ctx, &snap, payload, map[string]dto.AnyType{}); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// History returns every snapshot of key, oldest first.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the key has no snapshots.
func (s *Store) History(ctx context.Context, key string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, seq, type_fingerprint, payload, digest
		FROM snapshots
		WHERE key = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	type pending struct {
		snap    Snapshot
		payload []byte
	}
	var scanned []pending
	for rows.Next() {
		snap, payload, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		scanned = append(scanned, pending{snap, payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	rows.Close()

	// Types are resolved after the cursor is closed: the pool holds a
	// single connection.
	types := map[string]dto.AnyType{}
	history := make([]Snapshot, 0, len(scanned))
	for _, p := range scanned {
		if err := s.decode(ctx, &p.snap, p.payload, types); err != nil {
			return nil, err
		}
		history = append(history, p.snap)
	}
	return history, nil
}

// Keys returns every snapshot key in byte order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT key FROM snapshots ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, []byte, error) {
	var snap Snapshot
	var payload []byte
	err := row.Scan(&snap.ID, &snap.Key, &snap.Seq, &snap.Fingerprint, &payload, &snap.Digest)
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return snap, payload, nil
}

// decode fills snap.Value from payload and verifies its digest. types
// caches resolved fingerprints across calls.
func (s *Store) decode(ctx context.Context, snap *Snapshot, payload []byte, types map[string]dto.AnyType) error {
	t, ok := types[snap.Fingerprint]
	if !ok {
		var err error
		t, err = s.GetType(ctx, snap.Fingerprint)
		if err != nil {
			return err
		}
		types[snap.Fingerprint] = t
	}

	v, err := bincodec.Unmarshal(t, payload)
	if err != nil {
		return fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	digest, err := bincodec.Digest(v)
	if err != nil {
		return fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	if digest != snap.Digest {
		return fmt.Errorf("snapshot %s (%s #%d): %w", snap.ID, snap.Key, snap.Seq, ErrDigestMismatch)
	}
	snap.Value = v
	return nil
}
