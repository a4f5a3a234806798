package example

// WireCodec is the injected message-serialization capability. The model
// delegates all wire-level field encoding to it; tests can substitute a
// stub without touching the default protobuf wiring, and callers with
// generated message types can plug those in instead.
type WireCodec interface {
	EncodeExample(*Example) ([]byte, error)
	DecodeExample([]byte) (*Example, error)
	EncodeSequenceExample(*SequenceExample) ([]byte, error)
	DecodeSequenceExample([]byte) (*SequenceExample, error)
}

// DefaultCodec is the codec used by the package-level functions
var DefaultCodec WireCodec = ProtoCodec{}

// Encode serializes a flat example with the default codec
func Encode(e *Example) ([]byte, error) {
	return DefaultCodec.EncodeExample(e)
}

// Decode deserializes a flat example with the default codec
func Decode(data []byte) (*Example, error) {
	return DefaultCodec.DecodeExample(data)
}

// EncodeSequence serializes a sequence example with the default codec
func EncodeSequence(s *SequenceExample) ([]byte, error) {
	return DefaultCodec.EncodeSequenceExample(s)
}

// DecodeSequence deserializes a sequence example with the default codec
func DecodeSequence(data []byte) (*SequenceExample, error) {
	return DefaultCodec.DecodeSequenceExample(data)
}
