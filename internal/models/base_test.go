package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestULIDRoundTrip(t *testing.T) {
	id := NewULID()
	require.False(t, id.IsZero())

	parsed, err := ParseULID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestNewULIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewULID(), NewULID())
}

func TestParseULIDRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-ulid", "0000000000000000000000000!"} {
		_, err := ParseULID(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestULIDDriverValue(t *testing.T) {
	id := NewULID()
	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	v, err = ULID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v, "zero ULID stores as NULL")
}

func TestULIDScan(t *testing.T) {
	id := NewULID()

	var fromString ULID
	require.NoError(t, fromString.Scan(id.String()))
	assert.Equal(t, id, fromString)

	var fromBytes ULID
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	assert.Equal(t, id, fromBytes)

	var fromNil ULID
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsZero())

	var fromEmpty ULID
	require.NoError(t, fromEmpty.Scan(""))
	assert.True(t, fromEmpty.IsZero())

	var target ULID
	assert.Error(t, target.Scan(42))
	assert.Error(t, target.Scan("bogus"))
}

func TestULIDJSON(t *testing.T) {
	id := NewULID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var back ULID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)

	data, err = json.Marshal(ULID{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var fromNull ULID
	require.NoError(t, json.Unmarshal([]byte("null"), &fromNull))
	assert.True(t, fromNull.IsZero())

	var bad ULID
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &bad))
}

func TestBaseModelAssignsIDOnCreate(t *testing.T) {
	type widget struct {
		BaseModel
		Name string
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))

	w := widget{Name: "a"}
	require.NoError(t, db.Create(&w).Error)
	assert.False(t, w.ID.IsZero())

	// A caller-supplied ID is kept.
	preset := NewULID()
	w2 := widget{BaseModel: BaseModel{ID: preset}, Name: "b"}
	require.NoError(t, db.Create(&w2).Error)
	assert.Equal(t, preset, w2.ID)
}

func TestBoolVal(t *testing.T) {
	assert.True(t, BoolVal(nil), "nil means column default, which is true")
	assert.True(t, BoolVal(BoolPtr(true)))
	assert.False(t, BoolVal(BoolPtr(false)))
}
