package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMongo    string = "mongo"
	BackendPostgres string = "postgres"
	BackendLocal    string = "local"
)

// Config is read from the environment on startup.
type Config struct {
	HTTPAddr     string `envconfig:"HTTP_ADDR" default:":80"`
	AppEnv       string `envconfig:"APP_ENV" default:"production"`
	StoreBackend string `envconfig:"STORE_BACKEND" default:"mongo"`

	MongoConnString string `envconfig:"MONGODB_CONNSTRING"`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"hotel-booking"`
	PostgresDSN     string `envconfig:"POSTGRES_DSN"`
	LocalDBPath     string `envconfig:"LOCAL_DB_PATH" default:"./database/bookings.json"`

	RoomPool RoomPool `envconfig:"ROOM_POOL" default:"101,102,103,104,105"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"booking-events"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if err := c.RoomPool.Validate(); err != nil {
		return fmt.Errorf("incorrect room pool: %v", err)
	}

	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoConnString == "" {
			return fmt.Errorf("MONGODB_CONNSTRING is required for the %v store", BackendMongo)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the %v store", BackendPostgres)
		}
	case BackendLocal:
		if c.LocalDBPath == "" {
			return fmt.Errorf("LOCAL_DB_PATH is required for the %v store", BackendLocal)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// RoomPool is the fixed set of room numbers available for allocation.
type RoomPool []int

func DefaultRoomPool() RoomPool {
	return RoomPool{101, 102, 103, 104, 105}
}

// Decode implements envconfig.Decoder for comma separated room numbers.
func (p *RoomPool) Decode(value string) error {
	pool := RoomPool{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		room, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("room number %q is not an integer", part)
		}
		pool = append(pool, room)
	}
	*p = pool
	return nil
}

func (p RoomPool) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("room pool is empty")
	}
	seen := make(map[int]bool, len(p))
	for _, room := range p {
		if room <= 0 {
			return fmt.Errorf("room number %v must be positive", room)
		}
		if seen[room] {
			return fmt.Errorf("room number %v is listed twice", room)
		}
		seen[room] = true
	}
	return nil
}

// Sorted returns an ascending copy of the pool.
func (p RoomPool) Sorted() RoomPool {
	sorted := make(RoomPool, len(p))
	copy(sorted, p)
	sort.Ints(sorted)
	return sorted
}
