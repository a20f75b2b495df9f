// Package protocol implements the custdb request/response protocol.
//
// A request is a small object carrying an operation selector ("choice") and
// the customer fields that operation needs. A response is one of three
// shapes: a message, a single record, or a listing of records keyed by name.
//
// Payload encoding and message framing are independent:
//   - Codecs: JSON (default, compatible with older text clients) or CBOR
//   - Framing: newline-delimited, 4-byte length-prefixed, or the legacy
//     short-read framing understood by older clients
//
// Example usage:
//
//	conn := protocol.NewConn(netConn, protocol.FramingLine, protocol.JSON, protocol.Options{})
//
//	req := &protocol.Request{Choice: protocol.ChoiceFind, Name: protocol.NewField("Alice")}
//	if err := conn.WriteRequest(req); err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := conn.ReadResponse()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if resp.Type == protocol.RespRecord {
//		fmt.Println(resp.Record.Address)
//	}
//
// Wire shapes (JSON):
//
//	request:  {"choice": "2", "name": "Alice", "age": "30", "address": "", "phone": ""}
//	message:  {"message": "Customer has been added", "success": true}
//	record:   {"name": "Alice", "age": 30, "address": "1 Main St", "phone": "555 123-4567"}
//	listing:  {"amy": {...}, "Zed": {...}}
package protocol

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/cachemir/custdb/pkg/store"
)

// Choice selects the operation a request asks for.
type Choice string

// Choice codes. ChoiceExit is handled by the client alone and never sent.
const (
	ChoiceFind          Choice = "1" // find a customer by name
	ChoiceAdd           Choice = "2" // add a customer
	ChoiceDelete        Choice = "3" // delete a customer
	ChoiceUpdateAge     Choice = "4" // replace a customer's age
	ChoiceUpdateAddress Choice = "5" // replace a customer's address
	ChoiceUpdatePhone   Choice = "6" // replace a customer's phone
	ChoiceList          Choice = "7" // list every customer sorted by name
	ChoiceExit          Choice = "8" // client-side disconnect
)

var choiceNames = map[Choice]string{
	ChoiceFind:          "find",
	ChoiceAdd:           "add",
	ChoiceDelete:        "delete",
	ChoiceUpdateAge:     "update_age",
	ChoiceUpdateAddress: "update_address",
	ChoiceUpdatePhone:   "update_phone",
	ChoiceList:          "list",
	ChoiceExit:          "exit",
}

// Operation returns a short name for the choice, or "unknown".
func (c Choice) Operation() string {
	if name, ok := choiceNames[c]; ok {
		return name
	}
	return "unknown"
}

// Messages carried by message responses.
const (
	MsgNameRequired   = "Please provide Customer name"
	MsgNotFound       = "Customer not found"
	MsgAlreadyExists  = "Customer already exists"
	MsgNotExist       = "Customer does not exist"
	MsgAdded          = "Customer has been added"
	MsgDeleted        = "Customer has been deleted"
	MsgAgeUpdated     = "Customer age has been updated"
	MsgAddressUpdated = "Customer address has been updated"
	MsgPhoneUpdated   = "Customer phone has been updated"
	MsgUnknownChoice  = "Unknown operation"
)

// Field is an optional request field. An absent field reads as the empty
// string, so "missing" and "present but empty" behave the same everywhere.
type Field struct {
	value string
	set   bool
}

// NewField returns a present field holding v.
func NewField(v string) Field {
	return Field{value: v, set: true}
}

// String returns the field value, or "" if the field is absent.
func (f Field) String() string {
	return f.value
}

// IsSet reports whether the field was present in the request.
func (f Field) IsSet() bool {
	return f.set
}

// IsZero reports whether the field is absent. encoding/json uses it for omitzero.
func (f Field) IsZero() bool {
	return !f.set
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	*f = NewField(string(text))
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Strings and numbers are
// accepted; null leaves the field absent.
func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = Field{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = NewField(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Newf("field must be a string or number, got %s", data)
	}
	*f = NewField(n.String())
	return nil
}

// Request is a decoded client request.
//
// Example:
//
//	req := &Request{
//		Choice: ChoiceUpdatePhone,
//		Name:   NewField("Bob"),
//		Phone:  NewField("555 123-4567"),
//	}
type Request struct {
	Choice  Choice `json:"choice"`
	Name    Field  `json:"name,omitzero"`
	Age     Field  `json:"age,omitzero"`
	Address Field  `json:"address,omitzero"`
	Phone   Field  `json:"phone,omitzero"`
}

// ResponseType identifies which of the three response shapes a Response holds.
type ResponseType uint8

// Response types.
const (
	RespMessage ResponseType = iota // {"message": ...}, with "success" on acknowledgements
	RespRecord                      // a single record
	RespListing                     // name -> record, sorted by name
)

func (t ResponseType) String() string {
	switch t {
	case RespMessage:
		return "message"
	case RespRecord:
		return "record"
	case RespListing:
		return "listing"
	}
	return "invalid"
}

// Response is a server reply. Type selects which fields are meaningful.
type Response struct {
	Message string         // RespMessage
	Record  store.Record   // RespRecord
	Records []store.Record // RespListing, sorted by name
	Type    ResponseType
	Success bool // RespMessage: true for acknowledgements
}

// NewMessage returns an error message response.
func NewMessage(msg string) *Response {
	return &Response{Type: RespMessage, Message: msg}
}

// NewAck returns a success acknowledgement.
func NewAck(msg string) *Response {
	return &Response{Type: RespMessage, Message: msg, Success: true}
}

// NewRecord returns a single-record response.
func NewRecord(rec store.Record) *Response {
	return &Response{Type: RespRecord, Record: rec}
}

// NewListing returns a listing response. recs must already be sorted.
func NewListing(recs []store.Record) *Response {
	return &Response{Type: RespListing, Records: recs}
}

type messageBody struct {
	Message string `json:"message"`
	Success bool   `json:"success,omitempty"`
}

// MarshalJSON implements json.Marshaler. Listings are written as a JSON
// object whose keys appear in listing order.
func (r *Response) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case RespMessage:
		return json.Marshal(messageBody{Message: r.Message, Success: r.Success})
	case RespRecord:
		return json.Marshal(r.Record)
	case RespListing:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, rec := range r.Records {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(rec.Name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(rec)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, errors.Newf("cannot encode response type %d", r.Type)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	return r.decode(data, jsonObjects)
}

// objectDecoder abstracts the codec-specific pieces of response decoding.
type objectDecoder struct {
	object   func(data []byte) (map[string][]byte, error)
	isString func(raw []byte) bool
	value    func(data []byte, v any) error
}

var jsonObjects = objectDecoder{
	object: func(data []byte) (map[string][]byte, error) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		out := make(map[string][]byte, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		return out, nil
	},
	isString: func(raw []byte) bool {
		raw = bytes.TrimSpace(raw)
		return len(raw) > 0 && raw[0] == '"'
	},
	value: json.Unmarshal,
}

// decode classifies a top-level object. A string-valued "message" key marks
// a message, a string-valued "name" key a record, and anything else is a
// listing whose values are records.
func (r *Response) decode(data []byte, dec objectDecoder) error {
	fields, err := dec.object(data)
	if err != nil {
		return err
	}

	if raw, ok := fields["message"]; ok && dec.isString(raw) {
		resp := Response{Type: RespMessage}
		if err := dec.value(raw, &resp.Message); err != nil {
			return errors.Wrap(err, "decoding message")
		}
		if rawSuccess, ok := fields["success"]; ok {
			if err := dec.value(rawSuccess, &resp.Success); err != nil {
				return errors.Wrap(err, "decoding success flag")
			}
		}
		*r = resp
		return nil
	}

	if raw, ok := fields["name"]; ok && dec.isString(raw) {
		rec, err := decodeRecord(fields, dec)
		if err != nil {
			return err
		}
		*r = Response{Type: RespRecord, Record: rec}
		return nil
	}

	recs := make([]store.Record, 0, len(fields))
	for name, raw := range fields {
		inner, err := dec.object(raw)
		if err != nil {
			return errors.Wrapf(err, "decoding listing entry %q", name)
		}
		rec, err := decodeRecord(inner, dec)
		if err != nil {
			return err
		}
		if rec.Name == "" {
			rec.Name = name
		}
		recs = append(recs, rec)
	}
	sortRecords(recs)
	*r = Response{Type: RespListing, Records: recs}
	return nil
}

func decodeRecord(fields map[string][]byte, dec objectDecoder) (store.Record, error) {
	var rec store.Record
	for key, val := range fields {
		var dst any
		switch key {
		case "name":
			dst = &rec.Name
		case "age":
			dst = &rec.Age
		case "address":
			dst = &rec.Address
		case "phone":
			dst = &rec.Phone
		default:
			continue
		}
		if err := dec.value(val, dst); err != nil {
			return store.Record{}, errors.Wrapf(err, "decoding record field %q", key)
		}
	}
	return rec, nil
}

func sortRecords(recs []store.Record) {
	sort.Slice(recs, func(i, j int) bool {
		return store.Less(recs[i].Name, recs[j].Name)
	})
}
