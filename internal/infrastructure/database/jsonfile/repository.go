// Package jsonfile serves a cheque snapshot from a JSON export: an array of
// records in the store's input contract. It backs the CLI's --input flag.
package jsonfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// Repository is an immutable in-memory snapshot. It implements
// cheque.Repository.
type Repository struct {
	cheques []*cheque.Cheque
	byID    map[string]*cheque.Cheque
	version string
}

var _ cheque.Repository = (*Repository)(nil)

// Open reads and converts the file at path.
func Open(path string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "failed to open snapshot file").
			WithDetail("path=" + path)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a JSON array of cheque records. Duplicate ids are rejected;
// the version is a digest of the raw bytes.
func Read(r io.Reader) (*Repository, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "failed to read snapshot")
	}

	var records []cheque.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "malformed snapshot")
	}

	cheques, err := cheque.ToCheques(records)
	if err != nil {
		return nil, err
	}
	sort.Slice(cheques, func(i, j int) bool { return cheques[i].ID < cheques[j].ID })

	byID := make(map[string]*cheque.Cheque, len(cheques))
	for _, c := range cheques {
		if _, dup := byID[c.ID]; dup {
			return nil, errors.New(errors.ErrCodeChequeSnapshotUnreadable, "duplicate cheque id").
				WithDetail("cheque_id=" + c.ID)
		}
		byID[c.ID] = c
	}

	sum := sha256.Sum256(raw)
	return &Repository{
		cheques: cheques,
		byID:    byID,
		version: "sha256:" + hex.EncodeToString(sum[:8]),
	}, nil
}

// List returns every cheque ordered by id.
func (r *Repository) List(_ context.Context) ([]*cheque.Cheque, error) {
	out := make([]*cheque.Cheque, len(r.cheques))
	copy(out, r.cheques)
	return out, nil
}

// FindByID returns ErrCodeChequeNotFound for unknown ids.
func (r *Repository) FindByID(_ context.Context, id string) (*cheque.Cheque, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeChequeNotFound, "cheque not found").
			WithDetail("cheque_id=" + id)
	}
	return c, nil
}

// Version is stable for identical file contents.
func (r *Repository) Version(_ context.Context) (string, error) {
	return r.version, nil
}
