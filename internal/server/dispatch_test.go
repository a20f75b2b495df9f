package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cachemir/custdb/pkg/config"
	"github.com/cachemir/custdb/pkg/protocol"
	"github.com/cachemir/custdb/pkg/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	require.NoError(t, st.Add(store.Record{Name: "Alice", Age: "30", Address: "1 Main St", Phone: "555 123-4567"}))
	require.NoError(t, st.Add(store.Record{Name: "Bob", Address: "2 Oak Ave"}))
	return st
}

func field(v string) protocol.Field { return protocol.NewField(v) }

func TestDispatcher(t *testing.T) {
	st := seededStore(t)
	d := NewDispatcher(st, config.UnknownChoiceError, zap.NewNop())

	tests := []struct {
		name string
		req  protocol.Request
		want *protocol.Response
	}{
		{
			name: "find",
			req:  protocol.Request{Choice: protocol.ChoiceFind, Name: field("Alice")},
			want: protocol.NewRecord(store.Record{Name: "Alice", Age: "30", Address: "1 Main St", Phone: "555 123-4567"}),
		},
		{
			name: "find is case sensitive",
			req:  protocol.Request{Choice: protocol.ChoiceFind, Name: field("alice")},
			want: protocol.NewMessage(protocol.MsgNotFound),
		},
		{
			name: "find without name",
			req:  protocol.Request{Choice: protocol.ChoiceFind},
			want: protocol.NewMessage(protocol.MsgNameRequired),
		},
		{
			name: "add existing",
			req:  protocol.Request{Choice: protocol.ChoiceAdd, Name: field("Alice"), Age: field("25")},
			want: protocol.NewMessage(protocol.MsgAlreadyExists),
		},
		{
			name: "add",
			req:  protocol.Request{Choice: protocol.ChoiceAdd, Name: field("Carol"), Age: field("41")},
			want: protocol.NewAck(protocol.MsgAdded),
		},
		{
			name: "add with empty name",
			req:  protocol.Request{Choice: protocol.ChoiceAdd, Name: field(""), Age: field("41")},
			want: protocol.NewMessage(protocol.MsgNameRequired),
		},
		{
			name: "update age",
			req:  protocol.Request{Choice: protocol.ChoiceUpdateAge, Name: field("Bob"), Age: field("52")},
			want: protocol.NewAck(protocol.MsgAgeUpdated),
		},
		{
			name: "update address",
			req:  protocol.Request{Choice: protocol.ChoiceUpdateAddress, Name: field("Bob"), Address: field("3 Elm Rd")},
			want: protocol.NewAck(protocol.MsgAddressUpdated),
		},
		{
			name: "update phone of missing",
			req:  protocol.Request{Choice: protocol.ChoiceUpdatePhone, Name: field("Dave"), Phone: field("555 000-0000")},
			want: protocol.NewMessage(protocol.MsgNotFound),
		},
		{
			name: "delete missing",
			req:  protocol.Request{Choice: protocol.ChoiceDelete, Name: field("Dave")},
			want: protocol.NewMessage(protocol.MsgNotExist),
		},
		{
			name: "delete",
			req:  protocol.Request{Choice: protocol.ChoiceDelete, Name: field("Carol")},
			want: protocol.NewAck(protocol.MsgDeleted),
		},
		{
			name: "list",
			req:  protocol.Request{Choice: protocol.ChoiceList},
			want: protocol.NewListing([]store.Record{
				{Name: "Alice", Age: "30", Address: "1 Main St", Phone: "555 123-4567"},
				{Name: "Bob", Age: "52", Address: "3 Elm Rd"},
			}),
		},
	}

	// Cases run in order; later ones observe earlier mutations.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, ok := d.Dispatch(&tt.req)
			require.True(t, ok)
			assert.Equal(t, tt.want, resp)
		})
	}
}

func TestDispatcherUpdateLeavesOtherFields(t *testing.T) {
	st := seededStore(t)
	d := NewDispatcher(st, config.UnknownChoiceError, zap.NewNop())

	_, ok := d.Dispatch(&protocol.Request{Choice: protocol.ChoiceUpdatePhone, Name: field("Alice"), Phone: field("")})
	require.True(t, ok)

	rec, err := st.Find("Alice")
	require.NoError(t, err)
	assert.Equal(t, store.Record{Name: "Alice", Age: "30", Address: "1 Main St"}, rec)
}

func TestDispatcherUnknownChoice(t *testing.T) {
	st := seededStore(t)

	d := NewDispatcher(st, config.UnknownChoiceError, zap.NewNop())
	for _, choice := range []protocol.Choice{"9", protocol.ChoiceExit, ""} {
		resp, ok := d.Dispatch(&protocol.Request{Choice: choice, Name: field("Alice")})
		require.True(t, ok)
		assert.Equal(t, protocol.NewMessage("Unknown operation: "+string(choice)), resp)
	}

	d = NewDispatcher(st, config.UnknownChoiceIgnore, zap.NewNop())
	resp, ok := d.Dispatch(&protocol.Request{Choice: "9"})
	assert.False(t, ok)
	assert.Nil(t, resp)
	assert.Equal(t, 2, st.Len())
}
