package value

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripPrimitives(t *testing.T) {
	var (
		b   bool
		i16 int16
		i32 int32
		i64 int64
		u8  uint8
		f64 float64
		s   string
		raw []byte
		ts  time.Time
		d   decimal.Decimal
	)
	cases := []struct {
		in  any
		out any
	}{
		{true, &b},
		{int16(-12), &i16},
		{int32(1 << 20), &i32},
		{int64(1 << 40), &i64},
		{uint8(255), &u8},
		{3.25, &f64},
		{"hello", &s},
		{[]byte{0x00, 0xff}, &raw},
		{time.Date(2021, 6, 1, 12, 30, 0, 0, time.UTC), &ts},
		{decimal.RequireFromString("12.3456789012345678901234567890"), &d},
	}
	for _, c := range cases {
		v := ToValue(c.in)
		require.NoError(t, Decode(v, c.out))
		got := dereference(c.out)
		if dec, ok := c.in.(decimal.Decimal); ok {
			assert.True(t, dec.Equal(got.(decimal.Decimal)))
		} else {
			assert.Equal(t, c.in, got)
		}
	}
}

func dereference(ptr any) any {
	switch p := ptr.(type) {
	case *bool:
		return *p
	case *int16:
		return *p
	case *int32:
		return *p
	case *int64:
		return *p
	case *uint8:
		return *p
	case *float64:
		return *p
	case *string:
		return *p
	case *[]byte:
		return *p
	case *time.Time:
		return *p
	case *decimal.Decimal:
		return *p
	}
	return nil
}

func TestNumericNarrowing(t *testing.T) {
	var i16 int16
	require.NoError(t, Decode(Int64Value(300), &i16))
	assert.Equal(t, int16(300), i16)

	err := Decode(Int64Value(1<<20), &i16)
	var terr *TypeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, Int64, terr.From)

	var u8 uint8
	require.ErrorAs(t, Decode(Int16Value(-1), &u8), &terr)

	// Exact floats narrow, fractional ones do not.
	var n int
	require.NoError(t, Decode(Float64Value(42), &n))
	assert.Equal(t, 42, n)
	require.ErrorAs(t, Decode(Float64Value(42.5), &n), &terr)
}

func TestNullAndPointers(t *testing.T) {
	ptr := new(int64)
	require.NoError(t, Decode(NullValue, &ptr))
	assert.Nil(t, ptr)

	require.NoError(t, Decode(Int64Value(7), &ptr))
	require.NotNil(t, ptr)
	assert.Equal(t, int64(7), *ptr)

	// Nil pointers convert to Null.
	var in *string
	assert.True(t, ToValue(in).IsNull())
	assert.True(t, ToValue(nil).IsNull())
}

func TestStringBytesInterconvert(t *testing.T) {
	var s string
	require.NoError(t, Decode(BytesValue([]byte("héllo")), &s))
	assert.Equal(t, "héllo", s)

	var terr *TypeError
	err := Decode(BytesValue([]byte{0xff, 0xfe}), &s)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "invalid UTF-8", terr.Reason)

	var raw []byte
	require.NoError(t, Decode(StringValue("abc"), &raw))
	assert.Equal(t, []byte("abc"), raw)
}

func TestStructConversion(t *testing.T) {
	type address struct {
		Street string `db:"street"`
	}
	type person struct {
		ID       int64    `db:"id"`
		Name     string   `db:"name"`
		Address  address  `db:"address"`
		Nickname *string  `db:"nickname"`
		Tags     []string `db:"tags"`
		Secret   string   `db:"-"`
		hidden   string
	}

	in := person{
		ID:      3,
		Name:    "Ada",
		Address: address{Street: "Mill Lane"},
		Tags:    []string{"a", "b"},
		Secret:  "x",
		hidden:  "y",
	}
	v := ToValue(in)
	require.Equal(t, Map, v.Kind())
	if _, ok := v.Index("Secret"); ok {
		t.Fatal("db:\"-\" field must be skipped")
	}
	name, ok := v.Index("name")
	require.True(t, ok)
	assert.True(t, name.Equal(StringValue("Ada")))
	nick, ok := v.Index("nickname")
	require.True(t, ok)
	assert.True(t, nick.IsNull())

	var out person
	require.NoError(t, Decode(v, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Address, out.Address)
	assert.Nil(t, out.Nickname)
	assert.Equal(t, in.Tags, out.Tags)
	assert.Empty(t, out.Secret)
}

func TestMapAndListConversion(t *testing.T) {
	v := ToValue(map[string]any{
		"ids":  []any{1, 2, 3},
		"name": "x",
	})
	require.Equal(t, Map, v.Kind())
	ids, ok := v.Index("ids")
	require.True(t, ok)
	assert.Len(t, ids.Items(), 3)

	var out map[string]any
	require.NoError(t, Decode(v, &out))
	assert.Equal(t, "x", out["name"])
}

func TestKindMismatch(t *testing.T) {
	var terr *TypeError
	var b bool
	require.ErrorAs(t, Decode(StringValue("true"), &b), &terr)
	assert.Equal(t, String, terr.From)

	var ts time.Time
	require.ErrorAs(t, Decode(Int64Value(0), &ts), &terr)
}

func TestExport(t *testing.T) {
	assert.Nil(t, NullValue.Export())
	assert.Equal(t, int64(8), Uint8Value(8).Export())
	assert.Equal(t, "1.5", DecimalValue(decimal.RequireFromString("1.5")).Export())
	assert.Equal(t, "x", CharValue('x').Export())
	assert.Equal(t, []any{int64(1), "a"}, ListValue([]Value{Int64Value(1), StringValue("a")}).Export())
}

func TestDateTimeKinds(t *testing.T) {
	utc := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, DateTimeUTC, DateTimeValue(utc).Kind())

	local := time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, DateTime, DateTimeValue(local).Kind())
}

func TestDateAndTimeKinds(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := DateValue(day)
	assert.Equal(t, Date, v.Kind())
	var got time.Time
	require.NoError(t, Decode(v, &got))
	assert.True(t, got.Equal(day))
	assert.Equal(t, day, v.Export())

	clock := time.Date(0, 1, 1, 13, 30, 0, 0, time.UTC)
	v = TimeValue(clock)
	assert.Equal(t, Time, v.Kind())
	require.NoError(t, Decode(v, &got))
	assert.True(t, got.Equal(clock))
}

func TestUintOverflow(t *testing.T) {
	// Unsigned values past the int64 range must not wrap negative; they
	// carry as exact decimals instead.
	v := ToValue(uint64(math.MaxUint64))
	assert.Equal(t, Decimal, v.Kind())
	var d decimal.Decimal
	require.NoError(t, Decode(v, &d))
	assert.Equal(t, "18446744073709551615", d.String())
	assert.Equal(t, "18446744073709551615", v.Export())

	assert.Equal(t, Int64, ToValue(uint64(math.MaxInt64)).Kind())
	assert.Equal(t, Int64, ToValue(uint(42)).Kind())

	// The reflection path takes the same route.
	type wrapper struct {
		N uint64 `db:"n"`
	}
	m := ToValue(wrapper{N: math.MaxUint64})
	n, ok := m.Index("n")
	require.True(t, ok)
	assert.Equal(t, Decimal, n.Kind())
}
