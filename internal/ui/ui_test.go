package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachemir/custdb/pkg/store"
)

func TestPrinterRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Records([]store.Record{
		{Name: "Alice", Age: "30", Address: "1 Main St", Phone: "555 123-4567"},
		{Name: "Bob", Address: "2 Oak\nAve"},
	})

	out := buf.String()
	for _, want := range []string{"name", "age", "address", "phone", "Alice", "30", "1 Main St", "555 123-4567", "2 Oak Ave", "(2 customers)"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Alice"), strings.Index(out, "Bob"))
}

func TestPrinterEmptyRecords(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Records(nil)
	assert.Contains(t, buf.String(), "(0 customers)")
}

func TestPrinterMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Success("Customer has been added")
	p.Failure("Customer not found")
	p.Message("GoodBye")

	out := buf.String()
	require.Contains(t, out, "Customer has been added")
	require.Contains(t, out, "Customer not found")
	require.Contains(t, out, "GoodBye")
	assert.Contains(t, out, "─")
}
