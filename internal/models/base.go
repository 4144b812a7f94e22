// Package models defines the persisted entities: channels, transcoding
// profiles, jobs, dead-source events, monitoring records and the action log.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// ULID is the primary key type for every entity. It is stored as its
// 26-character string form so rows sort by creation time.
type ULID ulid.ULID

// NewULID returns a fresh monotonic ULID.
func NewULID() ULID {
	return ULID(ulid.Make())
}

// ParseULID parses the canonical 26-character form.
func ParseULID(s string) (ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ULID{}, fmt.Errorf("invalid ULID: %w", err)
	}
	return ULID(id), nil
}

// MustParseULID is ParseULID for values known to be valid, such as test
// fixtures. It panics on error.
func MustParseULID(s string) ULID {
	id, err := ParseULID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (u ULID) String() string {
	return ulid.ULID(u).String()
}

// IsZero reports whether u is the zero ULID.
func (u ULID) IsZero() bool {
	return u == ULID{}
}

// Value implements driver.Valuer. The zero ULID stores as NULL.
func (u ULID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return u.String(), nil
}

// Scan implements sql.Scanner, accepting string or []byte columns. NULL
// and the empty string scan to the zero ULID.
func (u *ULID) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case nil:
		*u = ULID{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ULID", value)
	}
	if s == "" {
		*u = ULID{}
		return nil
	}
	id, err := ulid.Parse(s)
	if err != nil {
		return fmt.Errorf("scanning ULID: %w", err)
	}
	*u = ULID(id)
	return nil
}

// MarshalJSON renders the zero ULID as null, everything else as a string.
func (u ULID) MarshalJSON() ([]byte, error) {
	if u.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(u.String())
}

func (u *ULID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = ULID{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid ULID JSON: %w", err)
	}
	if s == "" {
		*u = ULID{}
		return nil
	}
	id, err := ulid.Parse(s)
	if err != nil {
		return fmt.Errorf("parsing ULID JSON: %w", err)
	}
	*u = ULID(id)
	return nil
}

// GormDataType tells gorm how to type the column.
func (ULID) GormDataType() string {
	return "varchar(26)"
}

// BaseModel carries the key and bookkeeping columns shared by all entities.
// Deletes are soft; queries exclude tombstoned rows automatically.
type BaseModel struct {
	ID        ULID           `gorm:"primarykey;type:varchar(26)" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BeforeCreate assigns an ID when the caller did not.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID.IsZero() {
		b.ID = NewULID()
	}
	return nil
}

// Time is the timestamp type used by entity fields.
type Time = time.Time

// Now returns the current time.
func Now() Time {
	return time.Now()
}

// BoolPtr returns a pointer to b, for optional bool columns.
func BoolPtr(b bool) *bool {
	return &b
}

// BoolVal dereferences an optional bool column, treating nil as true to
// match the columns' database defaults.
func BoolVal(b *bool) bool {
	return b == nil || *b
}
