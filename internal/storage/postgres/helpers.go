package postgres

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/memcore/memcore/internal/memcoreerr"
)

func nullStr(s string) driver.Value {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) driver.Value {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(i *int) driver.Value {
	if i == nil {
		return nil
	}
	return *i
}

// embeddingArg returns a pgvector.Vector value (or nil) suitable for use as
// a query argument against the memories.embedding vector column.
func embeddingArg(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	v := pgvector.NewVector(vec)
	return &v
}

func marshalMetadata(meta map[string]any) (driver.Value, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

// nullVector scans a nullable pgvector column: the column is NULL for
// parent-of-chunks rows, pending-index memories, and failed-oracle writes.
type nullVector struct {
	Vector pgvector.Vector
	Valid  bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.Valid = false
		return nil
	}
	n.Valid = true
	return n.Vector.Scan(src)
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return memcoreerr.ErrNotFound
	}
	return nil
}
