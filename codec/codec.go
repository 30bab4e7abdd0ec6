// Package codec turns cached values into bytes and back. Entries must
// round-trip the original structured value, so pick a codec whose encoding
// preserves your type (JSON loses integer/float distinction inside `any`,
// Msgpack and CBOR are faithful for concrete structs, Protobuf for messages).
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
