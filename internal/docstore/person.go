// Package docstore is the PostgreSQL system of record for the demo document
// types. The domain write happens here first; indexing follows as an
// explicit call in the same handler.
package docstore

import (
	"context"
	"database/sql"
	"fmt"

	pkgerrors "github.com/pooi/redsearch/pkg/errors"
	"github.com/pooi/redsearch/pkg/postgres"
)

// Person is the demo document type: name is token-indexed, age and ctime
// are sortable.
type Person struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Age   int64  `json:"age"`
	Ctime int64  `json:"ctime"`
}

type PersonStore struct {
	db *postgres.Client
}

func NewPersonStore(db *postgres.Client) *PersonStore {
	return &PersonStore{db: db}
}

// EnsureSchema creates the persons table if it does not exist.
func (s *PersonStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS persons (
			id    BIGSERIAL PRIMARY KEY,
			name  TEXT   NOT NULL,
			age   BIGINT NOT NULL,
			ctime BIGINT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating persons table: %w", err)
	}
	return nil
}

// Save inserts the person (or updates it when ID is set) and returns the
// stored row with its assigned id.
func (s *PersonStore) Save(ctx context.Context, p Person) (Person, error) {
	if p.ID == 0 {
		err := s.db.DB.QueryRowContext(ctx,
			`INSERT INTO persons (name, age, ctime) VALUES ($1, $2, $3) RETURNING id`,
			p.Name, p.Age, p.Ctime,
		).Scan(&p.ID)
		if err != nil {
			return Person{}, fmt.Errorf("inserting person: %w", err)
		}
		return p, nil
	}
	// Update and read-back run in one transaction so the returned row is
	// the stored state, not the caller's input.
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE persons SET name = $2, age = $3, ctime = $4 WHERE id = $1`,
			p.ID, p.Name, p.Age, p.Ctime,
		)
		if err != nil {
			return fmt.Errorf("updating person %d: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return pkgerrors.Newf(pkgerrors.ErrDocumentNotFound, 404, "person %d", p.ID)
		}
		return tx.QueryRowContext(ctx,
			`SELECT id, name, age, ctime FROM persons WHERE id = $1`, p.ID,
		).Scan(&p.ID, &p.Name, &p.Age, &p.Ctime)
	})
	if err != nil {
		return Person{}, err
	}
	return p, nil
}

// Get returns the person with the given id.
func (s *PersonStore) Get(ctx context.Context, id int64) (Person, error) {
	var p Person
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, name, age, ctime FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Age, &p.Ctime)
	if err == sql.ErrNoRows {
		return Person{}, pkgerrors.Newf(pkgerrors.ErrDocumentNotFound, 404, "person %d", id)
	}
	if err != nil {
		return Person{}, fmt.Errorf("loading person %d: %w", id, err)
	}
	return p, nil
}

// Delete removes the person row. Deleting a missing row is not an error;
// the index cleanup path has the same no-op semantics.
func (s *PersonStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting person %d: %w", id, err)
	}
	return nil
}
