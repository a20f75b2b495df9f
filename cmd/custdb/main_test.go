package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cachemir/custdb/internal/server"
	"github.com/cachemir/custdb/pkg/config"
	"github.com/cachemir/custdb/pkg/store"
)

func startServer(t *testing.T, st *store.Store) string {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")

	srv, err := server.New(config.DefaultServerConfig(), st, zap.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error { return srv.Serve(context.Background(), ln) })
	t.Cleanup(func() {
		assert.NoError(t, srv.Stop())
		assert.NoError(t, g.Wait())
	})
	return ln.Addr().String()
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSubcommands(t *testing.T) {
	st := store.New()
	addr := startServer(t, st)

	out, err := execute(t, "", "--server", addr, "add", "Bob", "--age", "41", "--address", "2 Oak Ave", "--phone", "555 123-4567")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer has been added")

	out, err = execute(t, "", "--server", addr, "update-address", "Bob", "3 Elm Rd")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer address has been updated")

	out, err = execute(t, "", "--server", addr, "find", "Bob")
	require.NoError(t, err)
	assert.Contains(t, out, "3 Elm Rd")
	assert.Contains(t, out, "555 123-4567")

	_, err = execute(t, "", "--server", addr, "add", "Amy", "--age", "0")
	assert.EqualError(t, err, "Age can't be 0, Please enter valid age")

	out, err = execute(t, "", "--server", addr, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 customer)")

	_, err = execute(t, "", "--server", addr, "delete", "Nobody")
	assert.EqualError(t, err, "Customer does not exist")

	rec, err := st.Find("Bob")
	require.NoError(t, err)
	assert.Equal(t, store.Record{Name: "Bob", Age: "41", Address: "3 Elm Rd", Phone: "555 123-4567"}, rec)
}

func TestInteractiveMenu(t *testing.T) {
	st := store.New()
	require.NoError(t, st.Add(store.Record{Name: "Alice", Age: "30"}))
	addr := startServer(t, st)

	out, err := execute(t, "1\nAlice\n6\nAlice\n555 222-3333\n8\n", "--server", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Customer DB Menu")
	assert.Contains(t, out, "Customer phone has been updated")
	assert.Contains(t, out, "GoodBye")

	rec, err := st.Find("Alice")
	require.NoError(t, err)
	assert.Equal(t, "555 222-3333", rec.Phone)
}

func TestDialFailure(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = execute(t, "", "--server", addr, "list")
	assert.Error(t, err)
}
