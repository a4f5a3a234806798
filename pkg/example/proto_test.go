package example

import (
	"bytes"
	"errors"
	"math"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestProtoRoundTrip(t *testing.T) {
	e := New()
	e.Set("image", BytesList{[]byte("\x89PNG...")})
	e.Set("label", Int64List{7})
	e.Set("weights", FloatList{0.25, -1.5, math.MaxFloat32})
	e.Set("tags", BytesList{[]byte("cat"), []byte("mammal")})

	data, err := Encode(e)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, e.Names(), got.Names())
	for _, name := range e.Names() {
		want, _ := e.Get(name)
		have, ok := got.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, have, name)
	}
}

func TestProtoEncodeIsByteStable(t *testing.T) {
	build := func() *Example {
		e := New()
		e.Set("b", Int64List{1, 2})
		e.Set("a", FloatList{3.5})
		e.Set("c", BytesList{[]byte("z")})
		return e
	}

	first, err := Encode(build())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Encode(build())
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, again))
	}
}

func TestProtoEmptyListKeepsVariant(t *testing.T) {
	cases := []struct {
		name  string
		value Value
	}{
		{"bytes", BytesList{}},
		{"float", FloatList{}},
		{"int64", Int64List{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := New()
			e.Set("empty", tc.value)

			data, err := Encode(e)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)

			v, ok := got.Get("empty")
			require.True(t, ok)
			assert.Equal(t, tc.name, KindOf(v))
			assert.Equal(t, 0, LenOf(v))
		})
	}
}

func TestProtoEmptyExample(t *testing.T) {
	data, err := Encode(New())
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestProtoSequenceRoundTrip(t *testing.T) {
	s := NewSequence()
	s.Context = New()
	s.Context.Set("id", BytesList{[]byte("clip-42")})
	s.SetList("tokens", []Value{Int64List{1, 2}, Int64List{3}, Int64List{}})
	s.SetList("scores", []Value{FloatList{0.1}, FloatList{0.2}, FloatList{0.3}})

	data, err := EncodeSequence(s)
	require.NoError(t, err)

	got, err := DecodeSequence(data)
	require.NoError(t, err)

	require.NotNil(t, got.Context)
	id, ok := got.Context.Get("id")
	require.True(t, ok)
	assert.Equal(t, BytesList{[]byte("clip-42")}, id)

	assert.Equal(t, []string{"tokens", "scores"}, got.ListNames())
	tokens, _ := got.GetList("tokens")
	assert.Equal(t, []Value{Int64List{1, 2}, Int64List{3}, Int64List{}}, tokens)
}

func TestProtoSequenceNoContext(t *testing.T) {
	s := NewSequence()
	s.SetList("tokens", []Value{Int64List{1}})

	data, err := EncodeSequence(s)
	require.NoError(t, err)

	got, err := DecodeSequence(data)
	require.NoError(t, err)
	assert.Nil(t, got.Context)
	assert.Equal(t, []string{"tokens"}, got.ListNames())
}

func TestProtoSequenceRejectsRaggedLists(t *testing.T) {
	s := NewSequence()
	s.SetList("a", []Value{Int64List{1}, Int64List{2}})
	s.SetList("b", []Value{Int64List{3}})

	_, err := EncodeSequence(s)
	assert.True(t, errors.Is(err, ErrInconsistentSequenceLength))
}

func TestProtoNegativeInt64(t *testing.T) {
	e := New()
	e.Set("n", Int64List{-1, math.MinInt64, math.MaxInt64})

	data, err := Encode(e)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	v, _ := got.Get("n")
	assert.Equal(t, Int64List{-1, math.MinInt64, math.MaxInt64}, v)
}

// encodeHandRolled builds an Example message directly with protowire,
// independent of the codec, using the unpacked numeric encoding.
func encodeHandRolled(name string, feature []byte) []byte {
	var entry []byte
	entry = protowire.AppendTag(entry, fieldMapEntryKey, protowire.BytesType)
	entry = protowire.AppendString(entry, name)
	entry = protowire.AppendTag(entry, fieldMapEntryValue, protowire.BytesType)
	entry = protowire.AppendBytes(entry, feature)

	var features []byte
	features = protowire.AppendTag(features, fieldMapEntryKey, protowire.BytesType)
	features = protowire.AppendBytes(features, entry)

	var msg []byte
	msg = protowire.AppendTag(msg, fieldExampleFeatures, protowire.BytesType)
	msg = protowire.AppendBytes(msg, features)
	return msg
}

func TestProtoDecodeUnpackedNumericLists(t *testing.T) {
	var ints []byte
	ints = protowire.AppendTag(ints, fieldListValue, protowire.VarintType)
	ints = protowire.AppendVarint(ints, 5)
	ints = protowire.AppendTag(ints, fieldListValue, protowire.VarintType)
	ints = protowire.AppendVarint(ints, uint64(math.MaxUint64)) // -1

	var feature []byte
	feature = protowire.AppendTag(feature, fieldKindInt64List, protowire.BytesType)
	feature = protowire.AppendBytes(feature, ints)

	got, err := Decode(encodeHandRolled("n", feature))
	require.NoError(t, err)
	v, ok := got.Get("n")
	require.True(t, ok)
	assert.Equal(t, Int64List{5, -1}, v)

	var floats []byte
	floats = protowire.AppendTag(floats, fieldListValue, protowire.Fixed32Type)
	floats = protowire.AppendFixed32(floats, math.Float32bits(1.5))

	feature = nil
	feature = protowire.AppendTag(feature, fieldKindFloatList, protowire.BytesType)
	feature = protowire.AppendBytes(feature, floats)

	got, err = Decode(encodeHandRolled("f", feature))
	require.NoError(t, err)
	v, ok = got.Get("f")
	require.True(t, ok)
	assert.Equal(t, FloatList{1.5}, v)
}

func TestProtoDecodeSkipsUnknownFields(t *testing.T) {
	var feature []byte
	feature = protowire.AppendTag(feature, fieldKindInt64List, protowire.BytesType)
	var ints []byte
	ints = protowire.AppendTag(ints, fieldListValue, protowire.VarintType)
	ints = protowire.AppendVarint(ints, 9)
	feature = protowire.AppendBytes(feature, ints)
	// A field number the schema does not define.
	feature = protowire.AppendTag(feature, 99, protowire.VarintType)
	feature = protowire.AppendVarint(feature, 1)

	got, err := Decode(encodeHandRolled("n", feature))
	require.NoError(t, err)
	v, _ := got.Get("n")
	assert.Equal(t, Int64List{9}, v)
}

func TestProtoDecodeMalformed(t *testing.T) {
	t.Run("garbage bytes", func(t *testing.T) {
		_, err := Decode([]byte{0xff, 0xff, 0xff})
		assert.True(t, errors.Is(err, ErrMalformedExample))
	})

	t.Run("feature with no kind", func(t *testing.T) {
		_, err := Decode(encodeHandRolled("bad", nil))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedExample))
		assert.Contains(t, err.Error(), "bad")
	})

	t.Run("feature with two kinds", func(t *testing.T) {
		var feature []byte
		feature = protowire.AppendTag(feature, fieldKindBytesList, protowire.BytesType)
		feature = protowire.AppendBytes(feature, nil)
		feature = protowire.AppendTag(feature, fieldKindInt64List, protowire.BytesType)
		feature = protowire.AppendBytes(feature, nil)

		_, err := Decode(encodeHandRolled("bad", feature))
		assert.True(t, errors.Is(err, ErrMalformedExample))
	})

	t.Run("duplicate feature name", func(t *testing.T) {
		var feature []byte
		feature = protowire.AppendTag(feature, fieldKindInt64List, protowire.BytesType)
		feature = protowire.AppendBytes(feature, nil)

		one := encodeHandRolled("dup", feature)
		two := encodeHandRolled("dup", feature)
		_, err := Decode(append(one, two...))
		assert.True(t, errors.Is(err, ErrMalformedExample))
	})

	t.Run("packed float list with odd length", func(t *testing.T) {
		var floats []byte
		floats = protowire.AppendTag(floats, fieldListValue, protowire.BytesType)
		floats = protowire.AppendBytes(floats, []byte{1, 2, 3}) // not a multiple of 4

		var feature []byte
		feature = protowire.AppendTag(feature, fieldKindFloatList, protowire.BytesType)
		feature = protowire.AppendBytes(feature, floats)

		_, err := Decode(encodeHandRolled("f", feature))
		assert.True(t, errors.Is(err, ErrMalformedExample))
	})

	t.Run("ragged sequence rejected on decode", func(t *testing.T) {
		// Hand-build a FeatureLists message whose two lists disagree on
		// snapshot count; the encoder refuses to produce one.
		var feature []byte
		feature = protowire.AppendTag(feature, fieldKindInt64List, protowire.BytesType)
		feature = protowire.AppendBytes(feature, nil)

		listOf := func(n int) []byte {
			var list []byte
			for i := 0; i < n; i++ {
				list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
				list = protowire.AppendBytes(list, feature)
			}
			return list
		}
		entryOf := func(name string, list []byte) []byte {
			var entry []byte
			entry = protowire.AppendTag(entry, fieldMapEntryKey, protowire.BytesType)
			entry = protowire.AppendString(entry, name)
			entry = protowire.AppendTag(entry, fieldMapEntryValue, protowire.BytesType)
			entry = protowire.AppendBytes(entry, list)

			var wrapped []byte
			wrapped = protowire.AppendTag(wrapped, fieldMapEntryKey, protowire.BytesType)
			wrapped = protowire.AppendBytes(wrapped, entry)
			return wrapped
		}

		lists := append(entryOf("a", listOf(2)), entryOf("b", listOf(1))...)
		var msg []byte
		msg = protowire.AppendTag(msg, fieldSequenceFeatureLists, protowire.BytesType)
		msg = protowire.AppendBytes(msg, lists)

		_, err := DecodeSequence(msg)
		assert.True(t, errors.Is(err, ErrInconsistentSequenceLength))
	})
}

// stubCodec substitutes a trivial serialization to show the model is not
// welded to the protobuf wiring.
type stubCodec struct {
	encoded []byte
}

func (c *stubCodec) EncodeExample(*Example) ([]byte, error) { return c.encoded, nil }
func (c *stubCodec) DecodeExample([]byte) (*Example, error) {
	e := New()
	e.Set("stub", Int64List{1})
	return e, nil
}
func (c *stubCodec) EncodeSequenceExample(*SequenceExample) ([]byte, error) { return c.encoded, nil }
func (c *stubCodec) DecodeSequenceExample([]byte) (*SequenceExample, error) {
	return NewSequence(), nil
}

func TestDefaultCodecIsInjectable(t *testing.T) {
	orig := DefaultCodec
	defer func() { DefaultCodec = orig }()

	DefaultCodec = &stubCodec{encoded: []byte("opaque")}

	data, err := Encode(New())
	require.NoError(t, err)
	assert.Equal(t, []byte("opaque"), data)

	got, err := Decode(nil)
	require.NoError(t, err)
	_, ok := got.Get("stub")
	assert.True(t, ok)
}

func TestProtoRandomizedRoundTrip(t *testing.T) {
	f := fuzz.NewWithSeed(7).NilChance(0).NumElements(0, 8)

	for i := 0; i < 200; i++ {
		e := New()
		var n int
		f.Fuzz(&n)
		for j := 0; j < (n%5+5)%5+1; j++ {
			var name string
			f.Fuzz(&name)
			var kind int
			f.Fuzz(&kind)
			switch (kind%3 + 3) % 3 {
			case 0:
				var v [][]byte
				f.Fuzz(&v)
				e.Set(name, BytesList(v))
			case 1:
				var v []float32
				f.Fuzz(&v)
				e.Set(name, FloatList(v))
			default:
				var v []int64
				f.Fuzz(&v)
				e.Set(name, Int64List(v))
			}
		}

		data, err := Encode(e)
		require.NoError(t, err)
		got, err := Decode(data)
		require.NoError(t, err)

		require.Equal(t, e.Names(), got.Names())
		for _, name := range e.Names() {
			want, _ := e.Get(name)
			have, _ := got.Get(name)
			if LenOf(want) == 0 {
				assert.Equal(t, KindOf(want), KindOf(have))
				assert.Equal(t, 0, LenOf(have))
				continue
			}
			assert.Equal(t, want, have)
		}
	}
}
