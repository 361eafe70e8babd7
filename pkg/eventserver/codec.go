package eventserver

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding.Codec with JSON instead of the protobuf
// wire format, registered under the name "proto" so this service can skip
// .proto codegen while still running on grpc-go's normal unary call path.
// Both ends of every call in this module are this same Go binary, so wire
// compatibility with other languages is not a concern.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "proto"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
