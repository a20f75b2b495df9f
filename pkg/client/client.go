// Package client provides a Go client SDK for custdb servers.
//
// A Client owns one TCP connection and issues one request at a time over
// it. Every call writes a request and waits for exactly one response; there
// is no pipelining and no retry. Client methods are safe for concurrent use;
// concurrent calls are serialized on the connection.
//
// Basic Usage:
//
//	c, err := client.Dial(ctx, config.DefaultClientConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	msg, err := c.Add(store.Record{Name: "Alice", Age: "30"})
//	rec, err := c.Find("Alice")
//	recs, err := c.List()
//
// Input is validated before it is sent (see ValidateName, ValidateAge and
// ValidatePhone). Message responses that are not acknowledgements, such as
// "Customer not found", are returned as *ServerError.
package client

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/cachemir/custdb/pkg/config"
	"github.com/cachemir/custdb/pkg/protocol"
	"github.com/cachemir/custdb/pkg/store"
)

var (
	// ErrUnexpectedResponse is returned when the server answers with a response
	// shape the operation does not produce.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrConnClosed is returned by calls made after the connection was closed,
	// either by Close or by an earlier transport failure.
	ErrConnClosed = errors.New("connection closed")
)

// ServerError carries a non-acknowledgement message from the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is the server's "Customer not found" or
// "Customer does not exist" message.
func IsNotFound(err error) bool {
	var se *ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.Message == protocol.MsgNotFound || se.Message == protocol.MsgNotExist
}

// Client is a connection to a custdb server.
type Client struct {
	cfg  *config.ClientConfig
	conn net.Conn
	pc   *protocol.Conn
	mu   sync.Mutex
	// broken is set once the connection is closed; the stream position is
	// unknown after a failed exchange so the connection is never reused.
	broken error
}

// Dial connects to the server named by cfg.Address.
//
// Returns:
//   - A connected Client
//   - Error if cfg is invalid or the connection cannot be established
func Dial(ctx context.Context, cfg *config.ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid client config")
	}
	framing, codec, err := cfg.Wire()
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: cfg.ConnTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", cfg.Address)
	}

	return &Client{
		cfg:  cfg,
		conn: conn,
		pc:   protocol.NewConn(conn, framing, codec, cfg.Options()),
	}, nil
}

// Close closes the connection. The server sees end of stream. Closing a
// client whose connection already failed is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return nil
	}
	c.broken = errors.Wrap(ErrConnClosed, "client closed")
	return c.conn.Close()
}

// Do sends req as is and returns the server's response. It performs no
// validation and is the building block for the typed methods.
//
// Any transport or decoding failure closes the connection; later calls
// return an error wrapping ErrConnClosed.
func (c *Client) Do(req *protocol.Request) (*protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return nil, c.broken
	}

	if c.cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return nil, c.fail(errors.Wrap(err, "setting write deadline"))
		}
	}
	if err := c.pc.WriteRequest(req); err != nil {
		return nil, c.fail(errors.Wrapf(err, "sending %s request", req.Choice.Operation()))
	}

	if c.cfg.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return nil, c.fail(errors.Wrap(err, "setting read deadline"))
		}
	}
	resp, err := c.pc.ReadResponse()
	if err != nil {
		return nil, c.fail(errors.Wrapf(err, "reading %s response", req.Choice.Operation()))
	}
	return resp, nil
}

// fail closes the connection after err and returns err. Must be called with
// c.mu held.
func (c *Client) fail(err error) error {
	_ = c.conn.Close()
	c.broken = errors.Mark(errors.Wrapf(ErrConnClosed, "after %v", err), ErrConnClosed)
	return err
}

// Find returns the record stored under name.
func (c *Client) Find(name string) (store.Record, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return store.Record{}, err
	}

	resp, err := c.Do(&protocol.Request{Choice: protocol.ChoiceFind, Name: protocol.NewField(name)})
	if err != nil {
		return store.Record{}, err
	}

	switch resp.Type {
	case protocol.RespRecord:
		return resp.Record, nil
	case protocol.RespMessage:
		return store.Record{}, &ServerError{Message: resp.Message}
	}
	return store.Record{}, errors.Wrapf(ErrUnexpectedResponse, "find returned a %s", resp.Type)
}

// Add inserts rec and returns the acknowledgement message. Fields are
// trimmed of surrounding whitespace before validation.
func (c *Client) Add(rec store.Record) (string, error) {
	rec = normalize(rec)
	if err := firstError(ValidateName(rec.Name), ValidateAge(rec.Age.String()), ValidatePhone(rec.Phone)); err != nil {
		return "", err
	}

	return c.ack(&protocol.Request{
		Choice:  protocol.ChoiceAdd,
		Name:    protocol.NewField(rec.Name),
		Age:     protocol.NewField(rec.Age.String()),
		Address: protocol.NewField(rec.Address),
		Phone:   protocol.NewField(rec.Phone),
	})
}

// Delete removes the record stored under name.
func (c *Client) Delete(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return c.ack(&protocol.Request{Choice: protocol.ChoiceDelete, Name: protocol.NewField(name)})
}

// UpdateAge replaces the age of name. An empty age clears it.
func (c *Client) UpdateAge(name, age string) (string, error) {
	name, age = strings.TrimSpace(name), strings.TrimSpace(age)
	if err := firstError(ValidateName(name), ValidateAge(age)); err != nil {
		return "", err
	}
	return c.ack(&protocol.Request{
		Choice: protocol.ChoiceUpdateAge,
		Name:   protocol.NewField(name),
		Age:    protocol.NewField(age),
	})
}

// UpdateAddress replaces the address of name.
func (c *Client) UpdateAddress(name, address string) (string, error) {
	name, address = strings.TrimSpace(name), strings.TrimSpace(address)
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return c.ack(&protocol.Request{
		Choice:  protocol.ChoiceUpdateAddress,
		Name:    protocol.NewField(name),
		Address: protocol.NewField(address),
	})
}

// UpdatePhone replaces the phone of name.
func (c *Client) UpdatePhone(name, phone string) (string, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if err := firstError(ValidateName(name), ValidatePhone(phone)); err != nil {
		return "", err
	}
	return c.ack(&protocol.Request{
		Choice: protocol.ChoiceUpdatePhone,
		Name:   protocol.NewField(name),
		Phone:  protocol.NewField(phone),
	})
}

// List returns every record sorted case-insensitively by name.
func (c *Client) List() ([]store.Record, error) {
	resp, err := c.Do(&protocol.Request{Choice: protocol.ChoiceList})
	if err != nil {
		return nil, err
	}

	switch resp.Type {
	case protocol.RespListing:
		return resp.Records, nil
	case protocol.RespMessage:
		return nil, &ServerError{Message: resp.Message}
	}
	return nil, errors.Wrapf(ErrUnexpectedResponse, "list returned a %s", resp.Type)
}

func (c *Client) ack(req *protocol.Request) (string, error) {
	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	if resp.Type != protocol.RespMessage {
		return "", errors.Wrapf(ErrUnexpectedResponse, "%s returned a %s", req.Choice.Operation(), resp.Type)
	}
	if !resp.Success {
		return "", &ServerError{Message: resp.Message}
	}
	return resp.Message, nil
}

func normalize(rec store.Record) store.Record {
	return store.Record{
		Name:    strings.TrimSpace(rec.Name),
		Age:     store.Age(strings.TrimSpace(rec.Age.String())),
		Address: strings.TrimSpace(rec.Address),
		Phone:   strings.TrimSpace(rec.Phone),
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
