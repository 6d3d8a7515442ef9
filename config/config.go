// Package config provides tiered configuration loading for the room
// synchronization server: compiled defaults, optional YAML file,
// environment variables, and command-line flags, in increasing
// priority order.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds transport-level settings.
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Host   string `yaml:"host"`
	Daemon bool   `yaml:"daemon"`
}

// SimConfig holds the wire-observable tuning constants for the
// simulation and broadcast cadence.
type SimConfig struct {
	TickRateHz          float64 `yaml:"tick_rate_hz"`
	BroadcastRateHz     float64 `yaml:"broadcast_rate_hz"`
	MaxCatchUpTicks     int     `yaml:"max_catch_up_ticks"`
	MaxInputBufferTicks int     `yaml:"max_input_buffer_ticks"`
	FieldEpsilon        float64 `yaml:"field_epsilon"`
}

// ReconciliationConfig holds the client-side reconciliation and
// interpolation tunables.
type ReconciliationConfig struct {
	ReconciliationThreshold float64 `yaml:"reconciliation_threshold"`
	PositionLerpSpeed       float64 `yaml:"position_lerp_speed"`
	RotationSlerpSpeed      float64 `yaml:"rotation_slerp_speed"`
	InterpolationBufferSize int     `yaml:"interpolation_buffer_size"`
	ClientInputRateHz       float64 `yaml:"client_input_rate_hz"`
}

// ClockSyncConfig holds the clock synchronization cadence and sample
// window.
type ClockSyncConfig struct {
	IntervalSeconds float64 `yaml:"interval_seconds"`
	SampleWindow    int     `yaml:"sample_window"`
}

// WebSocketConfig mirrors the lineage's websocket tuning knobs,
// generalized to this service's transport.
type WebSocketConfig struct {
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	PongTimeoutSeconds  int `yaml:"pong_timeout_seconds"`
	PingPeriodSeconds   int `yaml:"ping_period_seconds"`
	MaxMessageBytes     int `yaml:"max_message_bytes"`
	ReadBufferBytes     int `yaml:"read_buffer_bytes"`
	WriteBufferBytes    int `yaml:"write_buffer_bytes"`
	ClientSendQueueSize int `yaml:"client_send_queue_size"`
}

// PathsConfig holds on-disk locations.
type PathsConfig struct {
	PresetsDir string `yaml:"presets_dir"`
	LogDir     string `yaml:"log_dir"`
}

// LoggingConfig mirrors the structured logger's own config, kept here
// so a single file/env/flag tier can set both.
type LoggingConfig struct {
	Level        string   `yaml:"level"`
	TraceModules []string `yaml:"trace_modules"`
}

// RoomSyncConfig is the top-level configuration object.
type RoomSyncConfig struct {
	Server         ServerConfig         `yaml:"server"`
	Sim            SimConfig            `yaml:"sim"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	ClockSync      ClockSyncConfig      `yaml:"clock_sync"`
	WebSocket      WebSocketConfig      `yaml:"websocket"`
	Paths          PathsConfig          `yaml:"paths"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// Config is the global, once-initialized configuration singleton.
var Config *RoomSyncConfig

// Initialize loads configuration in priority order: defaults, then
// config file (if present), then environment variables, then command
// line flags. Call once at process startup before any GetXxx accessor.
func Initialize() error {
	cfg := loadDefaults()

	if path := os.Getenv("ROOMSYNC_CONFIG_FILE"); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return fmt.Errorf("loading config file: %w", err)
		}
	}

	loadEnvironmentVariables(cfg)
	loadFlags(cfg)

	Config = cfg
	return nil
}

func loadDefaults() *RoomSyncConfig {
	return &RoomSyncConfig{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Sim: SimConfig{
			TickRateHz:          60.0,
			BroadcastRateHz:     20.0,
			MaxCatchUpTicks:     10,
			MaxInputBufferTicks: 120,
			FieldEpsilon:        1e-4,
		},
		Reconciliation: ReconciliationConfig{
			ReconciliationThreshold: 0.1,
			PositionLerpSpeed:       0.3,
			RotationSlerpSpeed:      0.3,
			InterpolationBufferSize: 3,
			ClientInputRateHz:       60.0,
		},
		ClockSync: ClockSyncConfig{
			IntervalSeconds: 3.0,
			SampleWindow:    10,
		},
		WebSocket: WebSocketConfig{
			WriteTimeoutSeconds: 10,
			PongTimeoutSeconds:  60,
			PingPeriodSeconds:   54, // must stay below PongTimeoutSeconds
			MaxMessageBytes:     65536,
			ReadBufferBytes:     4096,
			WriteBufferBytes:    4096,
			ClientSendQueueSize: 256,
		},
		Paths: PathsConfig{
			PresetsDir: "./presets",
			LogDir:     "./logs",
		},
		Logging: LoggingConfig{
			Level:        "INFO",
			TraceModules: []string{},
		},
	}
}

func loadConfigFile(cfg *RoomSyncConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnvironmentVariables(cfg *RoomSyncConfig) {
	if v := os.Getenv("ROOMSYNC_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ROOMSYNC_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ROOMSYNC_TICK_RATE_HZ"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sim.TickRateHz = f
		}
	}
	if v := os.Getenv("ROOMSYNC_BROADCAST_RATE_HZ"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sim.BroadcastRateHz = f
		}
	}
	if v := os.Getenv("ROOMSYNC_PRESETS_DIR"); v != "" {
		cfg.Paths.PresetsDir = v
	}
	if v := os.Getenv("ROOMSYNC_LOG_DIR"); v != "" {
		cfg.Paths.LogDir = v
	}
	if v := os.Getenv("ROOMSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func loadFlags(cfg *RoomSyncConfig) {
	if flag.Parsed() {
		return
	}

	port := flag.Int("port", cfg.Server.Port, "TCP port to listen on")
	host := flag.String("host", cfg.Server.Host, "address to bind")
	daemon := flag.Bool("daemon", cfg.Server.Daemon, "accepted but has no effect; the server always runs in the foreground")
	tickRate := flag.Float64("tick-rate-hz", cfg.Sim.TickRateHz, "physics tick rate in Hz")
	broadcastRate := flag.Float64("broadcast-rate-hz", cfg.Sim.BroadcastRateHz, "state broadcast rate in Hz")
	presetsDir := flag.String("presets-dir", cfg.Paths.PresetsDir, "directory of named room preset YAML files")
	logDir := flag.String("log-dir", cfg.Paths.LogDir, "directory for log files")
	logLevel := flag.String("log-level", cfg.Logging.Level, "logging level (TRACE, DEBUG, INFO, WARN, ERROR, FATAL)")

	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Server.Daemon = *daemon
	cfg.Sim.TickRateHz = *tickRate
	cfg.Sim.BroadcastRateHz = *broadcastRate
	cfg.Paths.PresetsDir = *presetsDir
	cfg.Paths.LogDir = *logDir
	cfg.Logging.Level = *logLevel
}

func ensure() *RoomSyncConfig {
	if Config == nil {
		Config = loadDefaults()
	}
	return Config
}

// GetTickInterval returns the fixed simulation timestep Δ.
func GetTickInterval() time.Duration {
	hz := ensure().Sim.TickRateHz
	if hz <= 0 {
		hz = 60.0
	}
	return time.Duration(float64(time.Second) / hz)
}

// GetBroadcastIntervalTicks returns the number of ticks between state
// broadcasts, derived from the tick rate and broadcast rate.
func GetBroadcastIntervalTicks() int {
	c := ensure()
	if c.Sim.BroadcastRateHz <= 0 {
		return 3
	}
	n := int(c.Sim.TickRateHz / c.Sim.BroadcastRateHz)
	if n < 1 {
		n = 1
	}
	return n
}

// GetBroadcastRateHz returns the configured state-broadcast rate,
// used by the client to size its interpolation render delay.
func GetBroadcastRateHz() float64 {
	hz := ensure().Sim.BroadcastRateHz
	if hz <= 0 {
		return 20.0
	}
	return hz
}

// GetMaxCatchUpTicks returns the spiral-of-death clamp, in multiples
// of Δ, on a single wake-up's elapsed time.
func GetMaxCatchUpTicks() int {
	n := ensure().Sim.MaxCatchUpTicks
	if n <= 0 {
		return 10
	}
	return n
}

// GetMaxInputBufferTicks returns how many ticks of input history are
// retained per client before pruning.
func GetMaxInputBufferTicks() int {
	n := ensure().Sim.MaxInputBufferTicks
	if n <= 0 {
		return 120
	}
	return n
}

// GetFieldEpsilon returns the absolute-difference threshold used when
// deciding whether a tracked field changed.
func GetFieldEpsilon() float64 {
	e := ensure().Sim.FieldEpsilon
	if e <= 0 {
		return 1e-4
	}
	return e
}

// GetReconciliationThreshold returns the distance threshold (meters)
// above which syncclient.NeedsCorrection reports that a locally
// predicted position has drifted from the authoritative one.
func GetReconciliationThreshold() float64 {
	t := ensure().Reconciliation.ReconciliationThreshold
	if t <= 0 {
		return 0.1
	}
	return t
}

// GetPositionLerpSpeed returns the per-frame position blend factor.
func GetPositionLerpSpeed() float64 {
	s := ensure().Reconciliation.PositionLerpSpeed
	if s <= 0 {
		return 0.3
	}
	return s
}

// GetRotationSlerpSpeed returns the per-frame orientation blend
// factor.
func GetRotationSlerpSpeed() float64 {
	s := ensure().Reconciliation.RotationSlerpSpeed
	if s <= 0 {
		return 0.3
	}
	return s
}

// GetInterpolationBufferSize returns the configured ring size N used
// by the client interpolation buffer (the ring itself holds N+1
// entries).
func GetInterpolationBufferSize() int {
	n := ensure().Reconciliation.InterpolationBufferSize
	if n <= 0 {
		return 3
	}
	return n
}

// GetClientInputRateHz returns the rate at which the client input
// manager flushes batched input.
func GetClientInputRateHz() float64 {
	hz := ensure().Reconciliation.ClientInputRateHz
	if hz <= 0 {
		return 60.0
	}
	return hz
}

// GetClockSyncInterval returns the period between clock-sync request
// emissions.
func GetClockSyncInterval() time.Duration {
	s := ensure().ClockSync.IntervalSeconds
	if s <= 0 {
		s = 3.0
	}
	return time.Duration(s * float64(time.Second))
}

// GetClockSyncSampleWindow returns the bounded history size for RTT
// and offset samples.
func GetClockSyncSampleWindow() int {
	n := ensure().ClockSync.SampleWindow
	if n <= 0 {
		return 10
	}
	return n
}

// GetListenAddr returns the host:port the server binds to.
func GetListenAddr() string {
	c := ensure()
	host := c.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.Server.Port
	if port <= 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// GetPresetsDir returns the directory room presets are resolved from.
func GetPresetsDir() string {
	d := ensure().Paths.PresetsDir
	if d == "" {
		return "./presets"
	}
	return d
}

// GetLogDir returns the directory log files are written to.
func GetLogDir() string {
	d := ensure().Paths.LogDir
	if d == "" {
		return "./logs"
	}
	return d
}

// GetLogLevel returns the configured logging level string.
func GetLogLevel() string {
	l := ensure().Logging.Level
	if l == "" {
		return "INFO"
	}
	return l
}

// GetTraceModules returns the configured trace-enabled module names.
func GetTraceModules() []string {
	return ensure().Logging.TraceModules
}

func getWebSocket() WebSocketConfig {
	return ensure().WebSocket
}

// GetWebSocketWriteTimeout returns the deadline for a single write.
func GetWebSocketWriteTimeout() time.Duration {
	s := getWebSocket().WriteTimeoutSeconds
	if s <= 0 {
		s = 10
	}
	return time.Duration(s) * time.Second
}

// GetWebSocketPongTimeout returns how long the server waits for a pong
// before considering the connection dead.
func GetWebSocketPongTimeout() time.Duration {
	s := getWebSocket().PongTimeoutSeconds
	if s <= 0 {
		s = 60
	}
	return time.Duration(s) * time.Second
}

// GetWebSocketPingPeriod returns the interval between keepalive pings.
// The 54s default is under the 60s default pong timeout; configured
// values are not checked against each other.
func GetWebSocketPingPeriod() time.Duration {
	s := getWebSocket().PingPeriodSeconds
	if s <= 0 {
		s = 54
	}
	return time.Duration(s) * time.Second
}

// GetWebSocketMaxMessageSize returns the maximum accepted inbound
// message size in bytes.
func GetWebSocketMaxMessageSize() int64 {
	n := getWebSocket().MaxMessageBytes
	if n <= 0 {
		n = 65536
	}
	return int64(n)
}

// GetWebSocketReadBufferSize returns the upgrader's read buffer size.
func GetWebSocketReadBufferSize() int {
	n := getWebSocket().ReadBufferBytes
	if n <= 0 {
		return 4096
	}
	return n
}

// GetWebSocketWriteBufferSize returns the upgrader's write buffer
// size.
func GetWebSocketWriteBufferSize() int {
	n := getWebSocket().WriteBufferBytes
	if n <= 0 {
		return 4096
	}
	return n
}

// GetWebSocketClientSendQueueSize returns the buffered channel depth
// for a client's outbound send queue; when full, broadcast frames are
// dropped to that client rather than stalling the room.
func GetWebSocketClientSendQueueSize() int {
	n := getWebSocket().ClientSendQueueSize
	if n <= 0 {
		return 256
	}
	return n
}
