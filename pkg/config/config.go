// Package config provides configuration management for the custdb server and client.
//
// The package supports configuration through multiple sources with the following precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables
//  3. A YAML configuration file
//  4. Default values (lowest priority)
//
// The configuration file is named by the --config flag or the CUSTDB_CONFIG
// environment variable. Environment variables are prefixed with "CUSTDB_" and
// use uppercase names; for example, the server port can be set with
// CUSTDB_PORT=9999.
//
// Example server usage:
//
//	fs := pflag.NewFlagSet("custdb-server", pflag.ContinueOnError)
//	config.RegisterServerFlags(fs)
//	if err := fs.Parse(os.Args[1:]); err != nil {
//		log.Fatal(err)
//	}
//	cfg, err := config.LoadServerConfig(fs)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Example client usage:
//
//	cfg := config.DefaultClientConfig()
//	cfg.Address = "db.example.com:9999"
//	c, err := client.Dial(ctx, cfg)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/cachemir/custdb/pkg/protocol"
)

// Default configuration constants
const (
	DefaultHost              = "localhost"
	DefaultServerPort        = 9999
	DefaultDataFile          = "data.txt"
	DefaultMaxConnections    = 1000
	DefaultWriteTimeout      = 10 * time.Second
	DefaultClientConnTimeout = 5 * time.Second
	DefaultClientReadTimeout = 30 * time.Second
	DefaultLogLevel          = "info"
	EnvConfigFile            = "CUSTDB_CONFIG"
	envPrefix                = "CUSTDB_"
)

// Unknown choice policies.
const (
	UnknownChoiceError  = "error"  // reply with an "Unknown operation" message
	UnknownChoiceIgnore = "ignore" // send nothing and keep the connection open
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ServerConfig holds all configuration options for a custdb server instance.
//
// Configuration sources (in order of precedence):
//  1. Command-line flags: --port, --host, --data-file, etc.
//  2. Environment variables: CUSTDB_PORT, CUSTDB_HOST, etc.
//  3. YAML file: port, host, data_file, etc.
//  4. Default values
//
// Example:
//
//	cfg := config.DefaultServerConfig()
//	cfg.Port = 7000
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
type ServerConfig struct {
	Host            string        `yaml:"host"`              // Host address to bind to (default: "localhost")
	DataFile        string        `yaml:"data_file"`         // Bootstrap file; empty starts with no records (default: "data.txt")
	Framing         string        `yaml:"framing"`           // line, length or legacy (default: "line")
	Codec           string        `yaml:"codec"`             // json or cbor (default: "json")
	UnknownChoice   string        `yaml:"unknown_choice"`    // error or ignore (default: "error")
	LogLevel        string        `yaml:"log_level"`         // debug, info, warn, error (default: "info")
	Port            int           `yaml:"port"`              // TCP port to listen on (default: 9999)
	MaxConns        int           `yaml:"max_conns"`         // Maximum concurrent connections (default: 1000)
	MaxMessageSize  int           `yaml:"max_message_size"`  // Largest accepted request in bytes (default: 1 MiB)
	LegacyChunkSize int           `yaml:"legacy_chunk_size"` // Read size for legacy framing (default: 65536)
	ReadTimeout     time.Duration `yaml:"read_timeout"`      // Idle timeout between requests, 0 disables (default: 0)
	WriteTimeout    time.Duration `yaml:"write_timeout"`     // Timeout for writing one response (default: 10s)
}

// ClientConfig holds all configuration options for a custdb client.
//
// Example:
//
//	cfg := config.DefaultClientConfig()
//	cfg.Address = "localhost:7000"
//	cfg.Framing = "length"
//	cfg.Codec = "cbor"
type ClientConfig struct {
	Address         string        `yaml:"address"`           // Server address (default: "localhost:9999")
	Framing         string        `yaml:"framing"`           // Must match the server (default: "line")
	Codec           string        `yaml:"codec"`             // Must match the server (default: "json")
	MaxMessageSize  int           `yaml:"max_message_size"`  // Largest accepted response in bytes (default: 1 MiB)
	LegacyChunkSize int           `yaml:"legacy_chunk_size"` // Read size for legacy framing (default: 65536)
	ConnTimeout     time.Duration `yaml:"conn_timeout"`      // Dial timeout (default: 5s)
	ReadTimeout     time.Duration `yaml:"read_timeout"`      // Timeout waiting for a response (default: 30s)
	WriteTimeout    time.Duration `yaml:"write_timeout"`     // Timeout for writing a request (default: 10s)
}

// DefaultServerConfig returns a ServerConfig populated with defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            DefaultHost,
		Port:            DefaultServerPort,
		DataFile:        DefaultDataFile,
		Framing:         string(protocol.FramingLine),
		Codec:           protocol.JSON.Name(),
		UnknownChoice:   UnknownChoiceError,
		MaxConns:        DefaultMaxConnections,
		MaxMessageSize:  protocol.DefaultMaxMessageSize,
		LegacyChunkSize: protocol.DefaultLegacyChunkSize,
		WriteTimeout:    DefaultWriteTimeout,
		LogLevel:        DefaultLogLevel,
	}
}

// DefaultClientConfig returns a ClientConfig populated with defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Address:         fmt.Sprintf("%s:%d", DefaultHost, DefaultServerPort),
		Framing:         string(protocol.FramingLine),
		Codec:           protocol.JSON.Name(),
		MaxMessageSize:  protocol.DefaultMaxMessageSize,
		LegacyChunkSize: protocol.DefaultLegacyChunkSize,
		ConnTimeout:     DefaultClientConnTimeout,
		ReadTimeout:     DefaultClientReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
	}
}

// RegisterServerFlags adds the server flags to fs.
//
// Command-line flags:
//
//	--config: YAML configuration file
//	--host: Server host (default: "localhost")
//	--port: Server port (default: 9999)
//	--data-file: Bootstrap data file (default: "data.txt")
//	--framing: Message framing (default: "line")
//	--codec: Payload codec (default: "json")
//	--unknown-choice: Unknown choice policy (default: "error")
//	--max-conns: Maximum connections (default: 1000)
//	--max-message-size: Maximum request size in bytes
//	--legacy-chunk-size: Read size for legacy framing
//	--read-timeout: Idle timeout between requests (default: 0, disabled)
//	--write-timeout: Response write timeout (default: 10s)
//	--log-level: Log level (default: "info")
func RegisterServerFlags(fs *pflag.FlagSet) {
	d := DefaultServerConfig()
	fs.String("config", "", "YAML configuration file")
	fs.String("host", d.Host, "Server host")
	fs.Int("port", d.Port, "Server port")
	fs.String("data-file", d.DataFile, "Bootstrap data file (empty for none)")
	fs.String("framing", d.Framing, "Message framing (line, length, legacy)")
	fs.String("codec", d.Codec, "Payload codec (json, cbor)")
	fs.String("unknown-choice", d.UnknownChoice, "Unknown choice policy (error, ignore)")
	fs.Int("max-conns", d.MaxConns, "Maximum concurrent connections")
	fs.Int("max-message-size", d.MaxMessageSize, "Maximum request size in bytes")
	fs.Int("legacy-chunk-size", d.LegacyChunkSize, "Read size for legacy framing")
	fs.Duration("read-timeout", d.ReadTimeout, "Idle timeout between requests (0 disables)")
	fs.Duration("write-timeout", d.WriteTimeout, "Response write timeout")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
}

// RegisterClientFlags adds the client flags to fs. The server address flag
// is --server so that commands remain free to use --address for customer
// data.
func RegisterClientFlags(fs *pflag.FlagSet) {
	d := DefaultClientConfig()
	fs.String("config", "", "YAML configuration file")
	fs.String("server", d.Address, "Server address (host:port)")
	fs.String("framing", d.Framing, "Message framing (line, length, legacy)")
	fs.String("codec", d.Codec, "Payload codec (json, cbor)")
	fs.Int("max-message-size", d.MaxMessageSize, "Maximum response size in bytes")
	fs.Int("legacy-chunk-size", d.LegacyChunkSize, "Read size for legacy framing")
	fs.Duration("conn-timeout", d.ConnTimeout, "Dial timeout")
	fs.Duration("read-timeout", d.ReadTimeout, "Response timeout")
	fs.Duration("write-timeout", d.WriteTimeout, "Request write timeout")
}

// LoadServerConfig builds a ServerConfig from defaults, the configuration
// file, environment variables and the flags set on fs, in increasing order
// of precedence. fs must have been registered with RegisterServerFlags and
// parsed; a nil fs skips flags.
//
// Environment variables:
//
//	CUSTDB_HOST, CUSTDB_PORT, CUSTDB_DATA_FILE, CUSTDB_FRAMING, CUSTDB_CODEC,
//	CUSTDB_UNKNOWN_CHOICE, CUSTDB_MAX_CONNS, CUSTDB_MAX_MESSAGE_SIZE,
//	CUSTDB_LEGACY_CHUNK_SIZE, CUSTDB_READ_TIMEOUT, CUSTDB_WRITE_TIMEOUT,
//	CUSTDB_LOG_LEVEL
//
// Returns:
//   - ServerConfig with values loaded from various sources
//   - Error if the file cannot be read or a value cannot be parsed
func LoadServerConfig(fs *pflag.FlagSet) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	if err := loadFile(configPath(fs), cfg); err != nil {
		return nil, err
	}

	env := envLoader{}
	env.str("HOST", &cfg.Host)
	env.str("DATA_FILE", &cfg.DataFile)
	env.str("FRAMING", &cfg.Framing)
	env.str("CODEC", &cfg.Codec)
	env.str("UNKNOWN_CHOICE", &cfg.UnknownChoice)
	env.str("LOG_LEVEL", &cfg.LogLevel)
	env.int("PORT", &cfg.Port)
	env.int("MAX_CONNS", &cfg.MaxConns)
	env.int("MAX_MESSAGE_SIZE", &cfg.MaxMessageSize)
	env.int("LEGACY_CHUNK_SIZE", &cfg.LegacyChunkSize)
	env.duration("READ_TIMEOUT", &cfg.ReadTimeout)
	env.duration("WRITE_TIMEOUT", &cfg.WriteTimeout)
	if env.err != nil {
		return nil, env.err
	}

	if fs != nil {
		flags := flagLoader{fs: fs}
		fs.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "host":
				flags.str(f.Name, &cfg.Host)
			case "data-file":
				flags.str(f.Name, &cfg.DataFile)
			case "framing":
				flags.str(f.Name, &cfg.Framing)
			case "codec":
				flags.str(f.Name, &cfg.Codec)
			case "unknown-choice":
				flags.str(f.Name, &cfg.UnknownChoice)
			case "log-level":
				flags.str(f.Name, &cfg.LogLevel)
			case "port":
				flags.int(f.Name, &cfg.Port)
			case "max-conns":
				flags.int(f.Name, &cfg.MaxConns)
			case "max-message-size":
				flags.int(f.Name, &cfg.MaxMessageSize)
			case "legacy-chunk-size":
				flags.int(f.Name, &cfg.LegacyChunkSize)
			case "read-timeout":
				flags.duration(f.Name, &cfg.ReadTimeout)
			case "write-timeout":
				flags.duration(f.Name, &cfg.WriteTimeout)
			}
		})
		if flags.err != nil {
			return nil, flags.err
		}
	}

	return cfg, nil
}

// LoadClientConfig builds a ClientConfig the same way LoadServerConfig does.
//
// Environment variables:
//
//	CUSTDB_ADDRESS, CUSTDB_FRAMING, CUSTDB_CODEC, CUSTDB_MAX_MESSAGE_SIZE,
//	CUSTDB_LEGACY_CHUNK_SIZE, CUSTDB_CONN_TIMEOUT, CUSTDB_READ_TIMEOUT,
//	CUSTDB_WRITE_TIMEOUT
func LoadClientConfig(fs *pflag.FlagSet) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	if err := loadFile(configPath(fs), cfg); err != nil {
		return nil, err
	}

	env := envLoader{}
	env.str("ADDRESS", &cfg.Address)
	env.str("FRAMING", &cfg.Framing)
	env.str("CODEC", &cfg.Codec)
	env.int("MAX_MESSAGE_SIZE", &cfg.MaxMessageSize)
	env.int("LEGACY_CHUNK_SIZE", &cfg.LegacyChunkSize)
	env.duration("CONN_TIMEOUT", &cfg.ConnTimeout)
	env.duration("READ_TIMEOUT", &cfg.ReadTimeout)
	env.duration("WRITE_TIMEOUT", &cfg.WriteTimeout)
	if env.err != nil {
		return nil, env.err
	}

	if fs != nil {
		flags := flagLoader{fs: fs}
		fs.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "server":
				flags.str(f.Name, &cfg.Address)
			case "framing":
				flags.str(f.Name, &cfg.Framing)
			case "codec":
				flags.str(f.Name, &cfg.Codec)
			case "max-message-size":
				flags.int(f.Name, &cfg.MaxMessageSize)
			case "legacy-chunk-size":
				flags.int(f.Name, &cfg.LegacyChunkSize)
			case "conn-timeout":
				flags.duration(f.Name, &cfg.ConnTimeout)
			case "read-timeout":
				flags.duration(f.Name, &cfg.ReadTimeout)
			case "write-timeout":
				flags.duration(f.Name, &cfg.WriteTimeout)
			}
		})
		if flags.err != nil {
			return nil, flags.err
		}
	}

	return cfg, nil
}

// configPath returns the --config flag if set, else CUSTDB_CONFIG.
func configPath(fs *pflag.FlagSet) string {
	if fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" {
			return path
		}
	}
	return os.Getenv(EnvConfigFile)
}

func loadFile(path string, out any) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "parsing config file %s", path)
	}
	return nil
}

// envLoader applies CUSTDB_* variables, keeping the first parse error.
type envLoader struct {
	err error
}

func (l *envLoader) str(key string, dst *string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func (l *envLoader) int(key string, dst *int) {
	v := os.Getenv(envPrefix + key)
	if v == "" || l.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.err = errors.Wrapf(err, "parsing %s%s", envPrefix, key)
		return
	}
	*dst = n
}

func (l *envLoader) duration(key string, dst *time.Duration) {
	v := os.Getenv(envPrefix + key)
	if v == "" || l.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.err = errors.Wrapf(err, "parsing %s%s", envPrefix, key)
		return
	}
	*dst = d
}

// flagLoader copies explicitly set flags, keeping the first lookup error.
type flagLoader struct {
	fs  *pflag.FlagSet
	err error
}

func (l *flagLoader) str(name string, dst *string) {
	if l.err != nil {
		return
	}
	*dst, l.err = l.fs.GetString(name)
}

func (l *flagLoader) int(name string, dst *int) {
	if l.err != nil {
		return
	}
	*dst, l.err = l.fs.GetInt(name)
}

func (l *flagLoader) duration(name string, dst *time.Duration) {
	if l.err != nil {
		return
	}
	*dst, l.err = l.fs.GetDuration(name)
}

// Address returns the full address string for the server to bind to.
//
// Example:
//
//	cfg := &ServerConfig{Host: "0.0.0.0", Port: 9999}
//	addr := cfg.Address() // Returns "0.0.0.0:9999"
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the ServerConfig contains valid values.
//
// Validation rules:
//   - Port must be between 1 and 65535
//   - MaxConns, MaxMessageSize and LegacyChunkSize must be positive
//   - ReadTimeout must be non-negative, WriteTimeout positive
//   - Framing, Codec, UnknownChoice and LogLevel must be known values
//   - The cbor codec requires length framing
//
// Returns:
//   - nil if configuration is valid
//   - Error describing the first validation failure found
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Newf("invalid port: %d", c.Port)
	}

	if c.MaxConns < 1 {
		return errors.Newf("max connections must be positive: %d", c.MaxConns)
	}

	if c.ReadTimeout < 0 {
		return errors.Newf("read timeout must not be negative: %s", c.ReadTimeout)
	}

	if c.WriteTimeout <= 0 {
		return errors.Newf("write timeout must be positive: %s", c.WriteTimeout)
	}

	if err := validateWire(c.Framing, c.Codec, c.MaxMessageSize, c.LegacyChunkSize); err != nil {
		return err
	}

	if c.UnknownChoice != UnknownChoiceError && c.UnknownChoice != UnknownChoiceIgnore {
		return errors.Newf("invalid unknown choice policy: %s", c.UnknownChoice)
	}

	if !validLogLevels[c.LogLevel] {
		return errors.Newf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Validate checks if the ClientConfig contains valid values.
func (c *ClientConfig) Validate() error {
	if c.Address == "" {
		return errors.New("server address must be specified")
	}

	if c.ConnTimeout <= 0 {
		return errors.Newf("connection timeout must be positive: %s", c.ConnTimeout)
	}

	if c.ReadTimeout < 0 {
		return errors.Newf("read timeout must not be negative: %s", c.ReadTimeout)
	}

	if c.WriteTimeout < 0 {
		return errors.Newf("write timeout must not be negative: %s", c.WriteTimeout)
	}

	return validateWire(c.Framing, c.Codec, c.MaxMessageSize, c.LegacyChunkSize)
}

func validateWire(framing, codec string, maxMessageSize, legacyChunkSize int) error {
	f, err := protocol.ParseFraming(framing)
	if err != nil {
		return err
	}

	cd, err := protocol.ParseCodec(codec)
	if err != nil {
		return err
	}

	if cd == protocol.CBOR && f != protocol.FramingLength {
		return errors.Newf("codec %s requires %s framing, got %s", cd.Name(), protocol.FramingLength, f)
	}

	if maxMessageSize < 1 {
		return errors.Newf("max message size must be positive: %d", maxMessageSize)
	}

	if legacyChunkSize < 1 {
		return errors.Newf("legacy chunk size must be positive: %d", legacyChunkSize)
	}

	return nil
}

// Options returns the protocol options for this configuration.
func (c *ServerConfig) Options() protocol.Options {
	return protocol.Options{MaxMessageSize: c.MaxMessageSize, LegacyChunkSize: c.LegacyChunkSize}
}

// Options returns the protocol options for this configuration.
func (c *ClientConfig) Options() protocol.Options {
	return protocol.Options{MaxMessageSize: c.MaxMessageSize, LegacyChunkSize: c.LegacyChunkSize}
}

// Wire returns the parsed framing and codec.
func (c *ServerConfig) Wire() (protocol.Framing, protocol.Codec, error) {
	return parseWire(c.Framing, c.Codec)
}

// Wire returns the parsed framing and codec.
func (c *ClientConfig) Wire() (protocol.Framing, protocol.Codec, error) {
	return parseWire(c.Framing, c.Codec)
}

func parseWire(framing, codec string) (protocol.Framing, protocol.Codec, error) {
	f, err := protocol.ParseFraming(framing)
	if err != nil {
		return "", nil, err
	}
	cd, err := protocol.ParseCodec(codec)
	if err != nil {
		return "", nil, err
	}
	return f, cd, nil
}
