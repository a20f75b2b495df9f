package protocol

import (
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"

	"github.com/cachemir/custdb/pkg/store"
)

// Codec encodes and decodes request and response payloads.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Supported codecs.
var (
	JSON Codec = jsonCodec{}
	CBOR Codec = cborCodec{}
)

// ParseCodec returns the codec registered under name.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", JSON.Name():
		return JSON, nil
	case CBOR.Name():
		return CBOR, nil
	}
	return nil, errors.Newf("unknown codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// cborEncMode uses Core Deterministic Encoding so equal payloads always
// produce identical bytes. Fields implementing encoding.TextMarshaler are
// written as text strings.
var cborEncMode cbor.EncMode

var cborDecMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	cborEncMode, err = encOptions.EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cborDecMode.Unmarshal(data, v)
}

// MarshalCBOR implements cbor.Marshaler. Listings are encoded as a CBOR map;
// deterministic encoding orders its keys bytewise, so decoders re-sort.
func (r *Response) MarshalCBOR() ([]byte, error) {
	switch r.Type {
	case RespMessage:
		return cborEncMode.Marshal(messageBody{Message: r.Message, Success: r.Success})
	case RespRecord:
		return cborEncMode.Marshal(r.Record)
	case RespListing:
		m := make(map[string]store.Record, len(r.Records))
		for _, rec := range r.Records {
			m[rec.Name] = rec
		}
		return cborEncMode.Marshal(m)
	}
	return nil, errors.Newf("cannot encode response type %d", r.Type)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (r *Response) UnmarshalCBOR(data []byte) error {
	return r.decode(data, cborObjects)
}

const (
	cborMajorTypeMask = 0xe0
	cborTextString    = 0x60
)

var cborObjects = objectDecoder{
	object: func(data []byte) (map[string][]byte, error) {
		var fields map[string]cbor.RawMessage
		if err := cborDecMode.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		out := make(map[string][]byte, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		return out, nil
	},
	isString: func(raw []byte) bool {
		return len(raw) > 0 && raw[0]&cborMajorTypeMask == cborTextString
	},
	value: func(data []byte, v any) error {
		return cborDecMode.Unmarshal(data, v)
	},
}
