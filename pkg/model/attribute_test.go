package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

func TestAttributeSet(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		vt      types.ValueType
		def     any
		value   any
		want    any
		wantErr error
	}{
		{name: "text", vt: types.ValueTypeText, def: "", value: "Car", want: "Car"},
		{name: "int widens", vt: types.ValueTypeInteger, def: 0, value: int32(7), want: int64(7)},
		{name: "float32 widens", vt: types.ValueTypeReal, def: 0.0, value: float32(0.5), want: 0.5},
		{name: "boolean", vt: types.ValueTypeBoolean, def: false, value: true, want: true},
		{name: "timestamp", vt: types.ValueTypeTimestamp, def: nil, value: ts, want: ts},
		{name: "any", vt: types.ValueTypeAny, def: nil, value: []string{"a"}, want: []string{"a"}},
		{name: "nil resets to default", vt: types.ValueTypeText, def: "x", value: nil, want: "x"},
		{name: "wrong type", vt: types.ValueTypeInteger, def: 0, value: "7", wantErr: types.ErrTypeMismatch},
		{name: "text rejects number", vt: types.ValueTypeText, def: "", value: 1, wantErr: types.ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSchema()
			typ := s.DefineType("T")
			a := s.Attribute(typ, "x", tt.vt, tt.def)
			require.NoError(t, s.Seal())
			m, err := NewModel(s)
			require.NoError(t, err)
			n := create(t, m, typ)

			err = a.Set(n, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, a.Default(), a.Value(n), "value unchanged")
				return
			}
			require.NoError(t, err)
			got, err := a.Get(n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttributeEvents(t *testing.T) {
	u := newUMLSchema(t)
	m := u.newModel(t)
	c := create(t, m, u.class)
	rec := record(m)

	require.NoError(t, c.Set("name", "Car"))
	require.NoError(t, c.Set("name", "Car"))
	require.Len(t, rec.events, 1, "setting the same value emits nothing")
	assert.Equal(t, Event{Kind: AttributeChanged, Node: c, Property: u.name, Old: "", New: "Car"}, rec.events[0])

	require.NoError(t, c.Delete("name", nil))
	require.Len(t, rec.events, 2)
	assert.Equal(t, "Car", rec.events[1].Old)
	assert.Equal(t, "", rec.events[1].New)

	require.NoError(t, c.Delete("name", nil))
	assert.Len(t, rec.events, 2, "deleting the default emits nothing")
}

func TestAttributeDefaultHasNoSlot(t *testing.T) {
	u := newUMLSchema(t)
	m := u.newModel(t)
	c := create(t, m, u.class)

	require.NoError(t, u.isAbstract.Set(c, true))
	_, ok := c.slot(u.isAbstract)
	assert.True(t, ok)

	require.NoError(t, u.isAbstract.Set(c, false))
	_, ok = c.slot(u.isAbstract)
	assert.False(t, ok, "storing the default clears the slot")
	assert.Equal(t, false, u.isAbstract.Value(c))
}

func TestAttributeLoadCoerces(t *testing.T) {
	tests := []struct {
		name    string
		vt      types.ValueType
		raw     any
		want    any
		wantErr bool
	}{
		{name: "integer from json number", vt: types.ValueTypeInteger, raw: float64(42), want: int64(42)},
		{name: "integer from string", vt: types.ValueTypeInteger, raw: "42", want: int64(42)},
		{name: "real from string", vt: types.ValueTypeReal, raw: "2.5", want: 2.5},
		{name: "boolean from string", vt: types.ValueTypeBoolean, raw: "true", want: true},
		{name: "timestamp from rfc3339", vt: types.ValueTypeTimestamp, raw: "2026-03-01T12:00:00Z", want: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{name: "text from number", vt: types.ValueTypeText, raw: 3, want: "3"},
		{name: "integer from garbage", vt: types.ValueTypeInteger, raw: "many", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSchema()
			typ := s.DefineType("T")
			a := s.Attribute(typ, "x", tt.vt, nil)
			require.NoError(t, s.Seal())
			m, err := NewModel(s)
			require.NoError(t, err)
			n := create(t, m, typ)
			rec := record(m)

			err = a.Load(n, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrTypeMismatch)
				return
			}
			require.NoError(t, err)
			got := a.Value(n)
			if want, ok := tt.want.(time.Time); ok {
				assert.True(t, want.Equal(got.(time.Time)))
			} else {
				assert.Equal(t, tt.want, got)
			}
			assert.Empty(t, rec.events, "load emits nothing")
		})
	}
}

func TestAttributeCoerce(t *testing.T) {
	u := newUMLSchema(t)
	m := u.newModel(t)
	c := create(t, m, u.class)
	rec := record(m)

	v, err := u.isAbstract.Coerce("true")
	require.NoError(t, err)
	assert.Equal(t, true, v)
	assert.Equal(t, false, u.isAbstract.Value(c), "coerce stores nothing")
	assert.Empty(t, rec.events)

	_, err = u.isAbstract.Coerce("perhaps")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestAttributeSave(t *testing.T) {
	u := newUMLSchema(t)
	m := u.newModel(t)
	c := create(t, m, u.class)

	saved := map[string]any{}
	fn := func(name string, v any) error {
		saved[name] = v
		return nil
	}
	require.NoError(t, u.name.Save(c, fn))
	assert.Empty(t, saved, "default is not saved")

	require.NoError(t, c.Set("name", "Car"))
	require.NoError(t, u.name.Save(c, fn))
	assert.Equal(t, map[string]any{"name": "Car"}, saved)
}

func TestEnumeration(t *testing.T) {
	u := newUMLSchema(t)
	m := u.newModel(t)
	c := create(t, m, u.class)
	rec := record(m)

	assert.Equal(t, "public", u.visibility.Value(c), "first value is the default")

	require.NoError(t, c.Set("visibility", "private"))
	got, err := c.Get("visibility")
	require.NoError(t, err)
	assert.Equal(t, "private", got)
	require.Len(t, rec.events, 1)
	assert.Equal(t, AttributeChanged, rec.events[0].Kind)

	err = c.Set("visibility", "internal")
	assert.ErrorIs(t, err, types.ErrInvalidEnumerationValue)
	err = c.Set("visibility", 1)
	assert.ErrorIs(t, err, types.ErrInvalidEnumerationValue)
	assert.Equal(t, "private", u.visibility.Value(c))

	require.NoError(t, c.Delete("visibility", nil))
	assert.Equal(t, "public", u.visibility.Value(c))

	require.NoError(t, u.visibility.Load(c, "protected"))
	assert.Equal(t, "protected", u.visibility.Value(c))
	assert.ErrorIs(t, u.visibility.Load(c, "internal"), types.ErrInvalidEnumerationValue)
}

func TestScalarDescriptorsRejectForeignNodes(t *testing.T) {
	u := newUMLSchema(t)
	m := u.newModel(t)
	cm := create(t, m, u.comment)
	p := create(t, m, u.property)
	rec := record(m)

	tests := []struct {
		name   string
		mutate func() error
	}{
		{name: "attribute set", mutate: func() error { return u.name.Set(cm, "note") }},
		{name: "attribute delete", mutate: func() error { return u.name.Delete(cm, nil) }},
		{name: "attribute load", mutate: func() error { return u.name.Load(cm, "note") }},
		{name: "attribute of a sibling type", mutate: func() error { return u.isAbstract.Set(p, true) }},
		{name: "enumeration set", mutate: func() error { return u.visibility.Set(cm, "private") }},
		{name: "enumeration delete", mutate: func() error { return u.visibility.Delete(cm, nil) }},
		{name: "enumeration load", mutate: func() error { return u.visibility.Load(cm, "private") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.mutate(), types.ErrTypeMismatch)
		})
	}
	assert.Empty(t, rec.events)
	_, ok := cm.slot(u.name)
	assert.False(t, ok, "no slot written")
	assert.Equal(t, false, u.isAbstract.Value(p))
}
