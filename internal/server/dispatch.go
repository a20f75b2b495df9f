package server

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cachemir/custdb/pkg/config"
	"github.com/cachemir/custdb/pkg/protocol"
	"github.com/cachemir/custdb/pkg/store"
)

type handlerFunc func(req *protocol.Request) *protocol.Response

// Dispatcher routes decoded requests to store operations and turns the
// outcome into a response. Store errors become message responses; they are
// never returned to the caller.
type Dispatcher struct {
	store         *store.Store
	logger        *zap.Logger
	handlers      map[protocol.Choice]handlerFunc
	ignoreUnknown bool
}

// NewDispatcher returns a dispatcher over st. unknownChoice is one of
// config.UnknownChoiceError or config.UnknownChoiceIgnore.
func NewDispatcher(st *store.Store, unknownChoice string, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		store:         st,
		logger:        logger,
		ignoreUnknown: unknownChoice == config.UnknownChoiceIgnore,
	}
	d.handlers = map[protocol.Choice]handlerFunc{
		protocol.ChoiceFind:          d.handleFind,
		protocol.ChoiceAdd:           d.handleAdd,
		protocol.ChoiceDelete:        d.handleDelete,
		protocol.ChoiceUpdateAge:     d.handleUpdateAge,
		protocol.ChoiceUpdateAddress: d.handleUpdateAddress,
		protocol.ChoiceUpdatePhone:   d.handleUpdatePhone,
		protocol.ChoiceList:          d.handleList,
	}
	return d
}

// Dispatch executes req. The boolean is false when no response must be
// sent, which only happens for unknown choices under the ignore policy.
func (d *Dispatcher) Dispatch(req *protocol.Request) (*protocol.Response, bool) {
	handler, ok := d.handlers[req.Choice]
	if !ok {
		d.logger.Debug("Unknown choice",
			zap.String("choice", string(req.Choice)),
			zap.Bool("ignored", d.ignoreUnknown))
		if d.ignoreUnknown {
			return nil, false
		}
		return protocol.NewMessage(protocol.MsgUnknownChoice + ": " + string(req.Choice)), true
	}

	resp := handler(req)
	d.logger.Debug("Dispatched request",
		zap.String("op", req.Choice.Operation()),
		zap.String("name", req.Name.String()),
		zap.Stringer("result", resp.Type),
		zap.String("message", resp.Message))
	return resp, true
}

func (d *Dispatcher) handleFind(req *protocol.Request) *protocol.Response {
	rec, err := d.store.Find(req.Name.String())
	if err != nil {
		return failure(err)
	}
	return protocol.NewRecord(rec)
}

func (d *Dispatcher) handleAdd(req *protocol.Request) *protocol.Response {
	rec := store.Record{
		Name:    req.Name.String(),
		Age:     store.Age(req.Age.String()),
		Address: req.Address.String(),
		Phone:   req.Phone.String(),
	}
	if err := d.store.Add(rec); err != nil {
		return failure(err)
	}
	return protocol.NewAck(protocol.MsgAdded)
}

func (d *Dispatcher) handleDelete(req *protocol.Request) *protocol.Response {
	if err := d.store.Delete(req.Name.String()); err != nil {
		return failure(err)
	}
	return protocol.NewAck(protocol.MsgDeleted)
}

func (d *Dispatcher) handleUpdateAge(req *protocol.Request) *protocol.Response {
	if err := d.store.UpdateAge(req.Name.String(), store.Age(req.Age.String())); err != nil {
		return failure(err)
	}
	return protocol.NewAck(protocol.MsgAgeUpdated)
}

func (d *Dispatcher) handleUpdateAddress(req *protocol.Request) *protocol.Response {
	if err := d.store.UpdateAddress(req.Name.String(), req.Address.String()); err != nil {
		return failure(err)
	}
	return protocol.NewAck(protocol.MsgAddressUpdated)
}

func (d *Dispatcher) handleUpdatePhone(req *protocol.Request) *protocol.Response {
	if err := d.store.UpdatePhone(req.Name.String(), req.Phone.String()); err != nil {
		return failure(err)
	}
	return protocol.NewAck(protocol.MsgPhoneUpdated)
}

func (d *Dispatcher) handleList(_ *protocol.Request) *protocol.Response {
	return protocol.NewListing(d.store.ListSorted())
}

// failure maps a store error to its wire message.
func failure(err error) *protocol.Response {
	switch {
	case errors.Is(err, store.ErrNameRequired):
		return protocol.NewMessage(protocol.MsgNameRequired)
	case errors.Is(err, store.ErrNotFound):
		return protocol.NewMessage(protocol.MsgNotFound)
	case errors.Is(err, store.ErrAlreadyExists):
		return protocol.NewMessage(protocol.MsgAlreadyExists)
	case errors.Is(err, store.ErrNotExist):
		return protocol.NewMessage(protocol.MsgNotExist)
	}
	return protocol.NewMessage(err.Error())
}
