// Package storage holds what the sow stores share: the aggregate payload
// codec and the row shape of the sows table.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"granja/internal/core/id"
	"granja/internal/domain/sow"
)

// Table and column names shared by the SQL stores.
const (
	TableSows = "sows"

	ColID        = "id"
	ColPigID     = "pig_id"
	ColName      = "name"
	ColStatus    = "status"
	ColVersion   = "version"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
	ColData      = "data"
)

// SelectColumns is the column list of a full row read.
var SelectColumns = []string{ColID, ColPigID, ColName, ColStatus, ColVersion, ColCreatedAt, ColUpdatedAt, ColData}

// Row is one stored aggregate. The indexed columns duplicate fields of the
// payload; the columns win on read.
type Row struct {
	ID        id.ID     `db:"id"`
	PigID     string    `db:"pig_id"`
	Name      string    `db:"name"`
	Status    string    `db:"status"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Data      []byte    `db:"data"`
}

// Encode converts an aggregate into a row.
func Encode(s *sow.Sow) (Row, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return Row{}, fmt.Errorf("encode sow %s: %w", s.ID, err)
	}
	return Row{
		ID:        s.ID,
		PigID:     s.PigID,
		Name:      s.Name,
		Status:    string(s.Status),
		Version:   s.Version,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
		Data:      data,
	}, nil
}

// Decode rebuilds the aggregate from a row.
func Decode(r Row) (*sow.Sow, error) {
	s := &sow.Sow{}
	if err := json.Unmarshal(r.Data, s); err != nil {
		return nil, fmt.Errorf("decode sow %s: %w", r.ID, err)
	}
	s.ID = r.ID
	s.PigID = r.PigID
	s.Name = r.Name
	s.Status = sow.Status(r.Status)
	s.Version = r.Version
	s.CreatedAt = r.CreatedAt.UTC()
	s.UpdatedAt = r.UpdatedAt.UTC()
	return s, nil
}

// Values returns the row as an ordered insert value list for SelectColumns.
func (r Row) Values() []any {
	return []any{r.ID, r.PigID, r.Name, r.Status, r.Version, r.CreatedAt, r.UpdatedAt, r.Data}
}
