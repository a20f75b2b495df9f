package protocol

import (
	"io"

	"github.com/cockroachdb/errors"
)

// ErrMalformed marks payloads that were framed correctly but could not be
// decoded. Test for it with errors.Is.
var ErrMalformed = errors.New("malformed payload")

// Conn reads and writes protocol messages over a byte stream using one
// framing and one codec for its whole lifetime.
type Conn struct {
	w       io.Writer
	reader  FrameReader
	framing Framing
	codec   Codec
}

// NewConn wraps rw. rw is usually a net.Conn.
//
// Example:
//
//	conn := protocol.NewConn(netConn, protocol.FramingLength, protocol.CBOR, protocol.Options{})
func NewConn(rw io.ReadWriter, framing Framing, codec Codec, opts Options) *Conn {
	return &Conn{
		w:       rw,
		reader:  NewFrameReader(framing, rw, opts),
		framing: framing,
		codec:   codec,
	}
}

// ReadRequest reads and decodes the next request. It returns io.EOF when the
// peer closed the stream between requests.
func (c *Conn) ReadRequest() (*Request, error) {
	data, err := c.reader.ReadFrame()
	if err != nil {
		return nil, err
	}

	req := &Request{}
	if err := c.codec.Unmarshal(data, req); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding request"), ErrMalformed)
	}
	return req, nil
}

// WriteRequest encodes and writes a request.
func (c *Conn) WriteRequest(req *Request) error {
	data, err := c.codec.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	return WriteFrame(c.framing, c.w, data)
}

// ReadResponse reads and decodes the next response.
func (c *Conn) ReadResponse() (*Response, error) {
	data, err := c.reader.ReadFrame()
	if err != nil {
		return nil, err
	}

	resp := &Response{}
	if err := c.codec.Unmarshal(data, resp); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding response"), ErrMalformed)
	}
	return resp, nil
}

// WriteResponse encodes and writes a response.
func (c *Conn) WriteResponse(resp *Response) error {
	data, err := c.codec.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encoding response")
	}
	return WriteFrame(c.framing, c.w, data)
}
