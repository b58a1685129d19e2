// Package config loads the chunk server's YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ChunkServerConfig describes the listener this process exposes to game
// clients.
type ChunkServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxClients int    `yaml:"max_clients"`

	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	SendQueueSize int           `yaml:"send_queue_size"`
}

// GameServerConfig describes the upstream game server this process connects
// to as a client.
type GameServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxClients int    `yaml:"max_clients"`
}

// QueuesConfig sizes the three ingress EventQueues.
type QueuesConfig struct {
	IngressClientCapacity   int `yaml:"ingress_client_capacity"`
	IngressUpstreamCapacity int `yaml:"ingress_upstream_capacity"`
	PingCapacity            int `yaml:"ping_capacity"`
}

// WorkerPoolConfig sizes the bounded thread pool handlers run on.
type WorkerPoolConfig struct {
	Size     int `yaml:"size"` // 0 ⇒ resolved to runtime.NumCPU() at startup
	QueueCap int `yaml:"queue_cap"`
}

// SchedulerConfig controls the periodic simulation tick intervals (see
// internal/scheduler's task table).
type SchedulerConfig struct {
	SpawnIntervalMs         int64 `yaml:"spawn_interval_ms"`
	MovementIntervalMs      int64 `yaml:"movement_interval_ms"`
	OngoingActionIntervalMs int64 `yaml:"ongoing_action_interval_ms"`
	HarvestIntervalMs       int64 `yaml:"harvest_interval_ms"`
	CleanupIntervalMs       int64 `yaml:"cleanup_interval_ms"`
}

// LogConfig controls the slog handler installed at startup.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
	Debug bool   `yaml:"debug"` // parsed from config; no code reads it
}

// ChunkServer is the root configuration document for cmd/chunkserver.
type ChunkServer struct {
	ChunkServer ChunkServerConfig `yaml:"chunk_server"`
	GameServer  GameServerConfig  `yaml:"game_server"`
	Queues      QueuesConfig      `yaml:"queues"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Log         LogConfig         `yaml:"log"`
}

// DefaultChunkServer returns the built-in configuration used when no file is
// supplied, or to fill gaps left by a partial file.
func DefaultChunkServer() ChunkServer {
	return ChunkServer{
		ChunkServer: ChunkServerConfig{
			Host:          "0.0.0.0",
			Port:          9014,
			MaxClients:    1000,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  10 * time.Second,
			SendQueueSize: 256,
		},
		GameServer: GameServerConfig{
			Host:       "127.0.0.1",
			Port:       9013,
			MaxClients: 1000,
		},
		Queues: QueuesConfig{
			IngressClientCapacity:   10000,
			IngressUpstreamCapacity: 10000,
			PingCapacity:            10000,
		},
		WorkerPool: WorkerPoolConfig{
			Size:     0,
			QueueCap: 10000,
		},
		Scheduler: SchedulerConfig{
			SpawnIntervalMs:         15000,
			MovementIntervalMs:      3000,
			OngoingActionIntervalMs: 200,
			HarvestIntervalMs:       500,
			CleanupIntervalMs:       60000,
		},
		Log: LogConfig{
			Level: "info",
			Debug: false,
		},
	}
}

// LoadChunkServer loads chunk server config from a YAML file, starting from
// DefaultChunkServer() so a partial file only overrides what it specifies.
// If the file doesn't exist, returns the defaults unchanged.
func LoadChunkServer(path string) (ChunkServer, error) {
	cfg := DefaultChunkServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
