// Package custdb is a small customer record database served over TCP.
//
// A custdb server keeps customer records (name, age, address, phone) in
// memory, seeded from a pipe-delimited bootstrap file at startup. Clients
// connect over TCP and issue one request at a time: find, add, delete,
// update age, update address, update phone, or list every record sorted
// case-insensitively by name.
//
// # Architecture Overview
//
//   - Store (pkg/store): the record map and its sorted name index
//   - Bootstrap (pkg/bootstrap): loads name|age|address|phone lines
//   - Protocol (pkg/protocol): request and response shapes, codecs, framing
//   - Server (internal/server): connection handling and request dispatch
//   - Client SDK (pkg/client): typed operations and input validation
//   - Terminal UI (internal/ui): menu, tables and message banners
//   - Configuration (pkg/config): flags, environment variables and YAML
//
// # Quick Start
//
// Server:
//
//	./custdb-server --data-file data.txt --port 9999
//	# or
//	CUSTDB_PORT=9999 CUSTDB_DATA_FILE=data.txt ./custdb-server
//
// Client:
//
//	./custdb                      # interactive menu
//	./custdb find Alice
//	./custdb add Bob --age 41 --phone "555 123-4567"
//	./custdb list
//
// SDK:
//
//	c, err := client.Dial(ctx, config.DefaultClientConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	rec, err := c.Find("Alice")
//
// # Wire Protocol
//
// Requests and responses are JSON objects by default, one per line. The
// server can also use 4-byte length-prefixed frames, CBOR payloads with
// length-prefixed frames, or the legacy short-read framing spoken by older
// clients. Client and server must be configured with the same framing and
// codec.
//
// # Package Structure
//
//   - pkg/store: Record store
//   - pkg/bootstrap: Bootstrap file loader
//   - pkg/protocol: Wire protocol
//   - pkg/client: Client SDK
//   - pkg/config: Configuration management
//   - internal/server: Server implementation
//   - internal/ui: Terminal rendering and interactive menu
//   - internal/logging: Logger construction
//   - cmd/custdb-server: Server executable
//   - cmd/custdb: Client executable
//   - examples: SDK usage
package custdb
