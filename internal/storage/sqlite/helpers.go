package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/memcore/memcore/internal/embedding"
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
	return t.Format(timeLayout)
}

func nullInt(i *int) driver.Value {
	if i == nil {
		return nil
	}
	return *i
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func embeddingBlob(vec []float32) driver.Value {
	if len(vec) == 0 {
		return nil
	}
	return embedding.ToBlob(vec)
}

func blobToFloat32s(blob []byte) ([]float32, error) {
	return embedding.FromBlob(blob)
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
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
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

func countPlaceholders(stmt string) int {
	return strings.Count(stmt, "?")
}
