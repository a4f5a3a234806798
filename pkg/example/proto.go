package example

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the upstream example schema. These are a fixed, versioned
// contract shared with every other TFRecord implementation.
const (
	// Example
	fieldExampleFeatures = 1
	// SequenceExample
	fieldSequenceContext      = 1
	fieldSequenceFeatureLists = 2
	// Features.feature / FeatureLists.feature_list map entries
	fieldMapEntryKey   = 1
	fieldMapEntryValue = 2
	// Feature oneof kind
	fieldKindBytesList = 1
	fieldKindFloatList = 2
	fieldKindInt64List = 3
	// BytesList.value / FloatList.value / Int64List.value,
	// FeatureList.feature
	fieldListValue = 1
)

// ProtoCodec is the default WireCodec. It speaks the upstream protobuf
// schema directly through the protowire primitives, so no generated code is
// required and encoding order is fully under the model's control: features
// are emitted in insertion order, making output byte-stable.
type ProtoCodec struct{}

// EncodeExample serializes a flat example
func (ProtoCodec) EncodeExample(e *Example) ([]byte, error) {
	features, err := encodeFeatures(e)
	if err != nil {
		return nil, err
	}

	var buf []byte
	buf = protowire.AppendTag(buf, fieldExampleFeatures, protowire.BytesType)
	buf = protowire.AppendBytes(buf, features)
	return buf, nil
}

// DecodeExample deserializes a flat example
func (ProtoCodec) DecodeExample(data []byte) (*Example, error) {
	e := New()

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("invalid field tag")
		}
		data = data[n:]

		if num == fieldExampleFeatures && typ == protowire.BytesType {
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated features message")
			}
			data = data[n:]
			if err := decodeFeatures(msg, e); err != nil {
				return nil, err
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, malformed("invalid field value")
		}
		data = data[n:]
	}

	return e, nil
}

// EncodeSequenceExample serializes a sequence example, validating the
// uniform snapshot count first
func (ProtoCodec) EncodeSequenceExample(s *SequenceExample) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var buf []byte

	if s.Context != nil {
		context, err := encodeFeatures(s.Context)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, fieldSequenceContext, protowire.BytesType)
		buf = protowire.AppendBytes(buf, context)
	}

	var lists []byte
	var encodeErr error
	s.RangeLists(func(name string, snapshots []Value) bool {
		var list []byte
		for _, v := range snapshots {
			feature, err := encodeFeature(v)
			if err != nil {
				encodeErr = err
				return false
			}
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, feature)
		}

		var entry []byte
		entry = protowire.AppendTag(entry, fieldMapEntryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, name)
		entry = protowire.AppendTag(entry, fieldMapEntryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, list)

		lists = protowire.AppendTag(lists, fieldMapEntryKey, protowire.BytesType)
		lists = protowire.AppendBytes(lists, entry)
		return true
	})
	if encodeErr != nil {
		return nil, encodeErr
	}

	buf = protowire.AppendTag(buf, fieldSequenceFeatureLists, protowire.BytesType)
	buf = protowire.AppendBytes(buf, lists)
	return buf, nil
}

// DecodeSequenceExample deserializes a sequence example, validating the
// uniform snapshot count
func (ProtoCodec) DecodeSequenceExample(data []byte) (*SequenceExample, error) {
	s := NewSequence()

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("invalid field tag")
		}
		data = data[n:]

		switch {
		case num == fieldSequenceContext && typ == protowire.BytesType:
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated context message")
			}
			data = data[n:]
			if s.Context == nil {
				s.Context = New()
			}
			if err := decodeFeatures(msg, s.Context); err != nil {
				return nil, err
			}

		case num == fieldSequenceFeatureLists && typ == protowire.BytesType:
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated feature lists message")
			}
			data = data[n:]
			if err := decodeFeatureLists(msg, s); err != nil {
				return nil, err
			}

		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, malformed("invalid field value")
			}
			data = data[n:]
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func malformed(detail string) error {
	return fmt.Errorf("%w: %s", ErrMalformedExample, detail)
}

// encodeFeatures serializes a feature map in insertion order
func encodeFeatures(e *Example) ([]byte, error) {
	var buf []byte
	var encodeErr error

	e.Range(func(name string, v Value) bool {
		feature, err := encodeFeature(v)
		if err != nil {
			encodeErr = err
			return false
		}

		var entry []byte
		entry = protowire.AppendTag(entry, fieldMapEntryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, name)
		entry = protowire.AppendTag(entry, fieldMapEntryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, feature)

		buf = protowire.AppendTag(buf, fieldMapEntryKey, protowire.BytesType)
		buf = protowire.AppendBytes(buf, entry)
		return true
	})

	if encodeErr != nil {
		return nil, encodeErr
	}
	return buf, nil
}

// encodeFeature serializes one value. The kind field is always emitted, even
// for an empty list, so the variant tag survives a round trip.
func encodeFeature(v Value) ([]byte, error) {
	var field protowire.Number
	var list []byte

	switch v := v.(type) {
	case BytesList:
		field = fieldKindBytesList
		for _, b := range v {
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, b)
		}

	case FloatList:
		field = fieldKindFloatList
		if len(v) > 0 {
			var packed []byte
			for _, f := range v {
				packed = protowire.AppendFixed32(packed, math.Float32bits(f))
			}
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}

	case Int64List:
		field = fieldKindInt64List
		if len(v) > 0 {
			var packed []byte
			for _, i := range v {
				packed = protowire.AppendVarint(packed, uint64(i))
			}
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}

	default:
		return nil, malformed("feature value is nil")
	}

	var buf []byte
	buf = protowire.AppendTag(buf, field, protowire.BytesType)
	buf = protowire.AppendBytes(buf, list)
	return buf, nil
}

// decodeFeatures parses a Features message into e, rejecting duplicate names
func decodeFeatures(data []byte, e *Example) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("invalid field tag in feature map")
		}
		data = data[n:]

		if num != fieldMapEntryKey || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return malformed("invalid field value in feature map")
			}
			data = data[n:]
			continue
		}

		entry, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return malformed("truncated feature map entry")
		}
		data = data[n:]

		name, feature, err := decodeMapEntry(entry)
		if err != nil {
			return err
		}
		if _, exists := e.Get(name); exists {
			return malformed(fmt.Sprintf("duplicate feature name %q", name))
		}

		v, err := decodeFeature(feature)
		if err != nil {
			return fmt.Errorf("feature %q: %w", name, err)
		}
		e.Set(name, v)
	}
	return nil
}

// decodeFeatureLists parses a FeatureLists message into s
func decodeFeatureLists(data []byte, s *SequenceExample) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("invalid field tag in feature list map")
		}
		data = data[n:]

		if num != fieldMapEntryKey || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return malformed("invalid field value in feature list map")
			}
			data = data[n:]
			continue
		}

		entry, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return malformed("truncated feature list entry")
		}
		data = data[n:]

		name, list, err := decodeMapEntry(entry)
		if err != nil {
			return err
		}
		if _, exists := s.GetList(name); exists {
			return malformed(fmt.Sprintf("duplicate feature list name %q", name))
		}

		snapshots, err := decodeFeatureList(list)
		if err != nil {
			return fmt.Errorf("feature list %q: %w", name, err)
		}
		s.SetList(name, snapshots)
	}
	return nil
}

// decodeMapEntry splits a map entry into its key and value message
func decodeMapEntry(data []byte) (string, []byte, error) {
	var key string
	var value []byte
	seenValue := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", nil, malformed("invalid field tag in map entry")
		}
		data = data[n:]

		switch {
		case num == fieldMapEntryKey && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", nil, malformed("truncated map entry key")
			}
			data = data[n:]
			key = s

		case num == fieldMapEntryValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return "", nil, malformed("truncated map entry value")
			}
			data = data[n:]
			// Later occurrences of a message-typed map value merge.
			value = append(value, v...)
			seenValue = true

		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", nil, malformed("invalid field value in map entry")
			}
			data = data[n:]
		}
	}

	if !seenValue {
		return "", nil, malformed(fmt.Sprintf("map entry %q has no value", key))
	}
	return key, value, nil
}

// decodeFeature parses a Feature message. Exactly one kind must be
// populated; two occurrences of the same kind merge per protobuf semantics,
// two different kinds are malformed.
func decodeFeature(data []byte) (Value, error) {
	var v Value

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("invalid field tag in feature")
		}
		data = data[n:]

		switch num {
		case fieldKindBytesList, fieldKindFloatList, fieldKindInt64List:
			if typ != protowire.BytesType {
				return nil, malformed("feature kind has wrong wire type")
			}
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated feature kind")
			}
			data = data[n:]

			var err error
			v, err = decodeKind(num, msg, v)
			if err != nil {
				return nil, err
			}

		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, malformed("invalid field value in feature")
			}
			data = data[n:]
		}
	}

	if v == nil {
		return nil, malformed("feature has no kind")
	}
	return v, nil
}

func decodeKind(num protowire.Number, msg []byte, prev Value) (Value, error) {
	switch num {
	case fieldKindBytesList:
		list, ok := prev.(BytesList)
		if prev != nil && !ok {
			return nil, malformed("feature has more than one kind")
		}
		return decodeBytesList(msg, list)

	case fieldKindFloatList:
		list, ok := prev.(FloatList)
		if prev != nil && !ok {
			return nil, malformed("feature has more than one kind")
		}
		if list == nil {
			list = FloatList{}
		}
		return decodeFloatList(msg, list)

	default: // fieldKindInt64List
		list, ok := prev.(Int64List)
		if prev != nil && !ok {
			return nil, malformed("feature has more than one kind")
		}
		if list == nil {
			list = Int64List{}
		}
		return decodeInt64List(msg, list)
	}
}

func decodeBytesList(data []byte, list BytesList) (BytesList, error) {
	if list == nil {
		list = BytesList{}
	}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("invalid field tag in bytes list")
		}
		data = data[n:]

		if num == fieldListValue && typ == protowire.BytesType {
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated bytes list element")
			}
			data = data[n:]
			elem := make([]byte, len(b))
			copy(elem, b)
			list = append(list, elem)
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, malformed("invalid field value in bytes list")
		}
		data = data[n:]
	}
	return list, nil
}

// decodeFloatList accepts both packed and unpacked encodings
func decodeFloatList(data []byte, list FloatList) (FloatList, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("invalid field tag in float list")
		}
		data = data[n:]

		switch {
		case num == fieldListValue && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated packed float list")
			}
			data = data[n:]
			if len(packed)%4 != 0 {
				return nil, malformed("packed float list length is not a multiple of 4")
			}
			for len(packed) > 0 {
				bits, n := protowire.ConsumeFixed32(packed)
				if n < 0 {
					return nil, malformed("truncated packed float element")
				}
				packed = packed[n:]
				list = append(list, math.Float32frombits(bits))
			}

		case num == fieldListValue && typ == protowire.Fixed32Type:
			bits, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, malformed("truncated float element")
			}
			data = data[n:]
			list = append(list, math.Float32frombits(bits))

		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, malformed("invalid field value in float list")
			}
			data = data[n:]
		}
	}
	return list, nil
}

// decodeInt64List accepts both packed and unpacked encodings
func decodeInt64List(data []byte, list Int64List) (Int64List, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("invalid field tag in int64 list")
		}
		data = data[n:]

		switch {
		case num == fieldListValue && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated packed int64 list")
			}
			data = data[n:]
			for len(packed) > 0 {
				u, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return nil, malformed("truncated packed int64 element")
				}
				packed = packed[n:]
				list = append(list, int64(u))
			}

		case num == fieldListValue && typ == protowire.VarintType:
			u, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, malformed("truncated int64 element")
			}
			data = data[n:]
			list = append(list, int64(u))

		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, malformed("invalid field value in int64 list")
			}
			data = data[n:]
		}
	}
	return list, nil
}

// decodeFeatureList parses a FeatureList message: a repeated Feature
func decodeFeatureList(data []byte) ([]Value, error) {
	var snapshots []Value

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("invalid field tag in feature list")
		}
		data = data[n:]

		if num == fieldListValue && typ == protowire.BytesType {
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed("truncated feature list element")
			}
			data = data[n:]

			v, err := decodeFeature(msg)
			if err != nil {
				return nil, err
			}
			snapshots = append(snapshots, v)
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, malformed("invalid field value in feature list")
		}
		data = data[n:]
	}

	return snapshots, nil
}
