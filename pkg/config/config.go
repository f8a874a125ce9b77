package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Map       Map       `envPrefix:"MAP_"`
		Upstream  Upstream  `envPrefix:"UPSTREAM_"`
		Store     Store     `envPrefix:"STORE_"`
		Redis     Redis     `envPrefix:"REDIS_"`
	}

	HTTP struct {
		Enabled bool   `env:"ENABLED" envDefault:"true"`
		Server  Server `envPrefix:"SERVER_"`
	}

	Server struct {
		Port         string        `env:"PORT" envDefault:"8080"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL,required"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"slippymap"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"development"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	}

	Map struct {
		MaxZoom          int           `env:"MAX_ZOOM" envDefault:"20"`
		Tipping          float64       `env:"TIPPING" envDefault:"0.5"`
		TileSize         int           `env:"TILE_SIZE" envDefault:"256"`
		CacheSize        int           `env:"CACHE_SIZE" envDefault:"512"`
		Padding          int           `env:"PADDING" envDefault:"1"`
		EvictAfterPasses uint64        `env:"EVICT_AFTER_PASSES" envDefault:"3"`
		FrameInterval    time.Duration `env:"FRAME_INTERVAL" envDefault:"16ms"`
		QueueSize        int           `env:"QUEUE_SIZE" envDefault:"1024"`
		Width            int           `env:"WIDTH" envDefault:"800"`
		Height           int           `env:"HEIGHT" envDefault:"600"`
		Latitude         float64       `env:"LATITUDE" envDefault:"50.8434"`
		Longitude        float64       `env:"LONGITUDE" envDefault:"4.3678"`
		Zoom             float64       `env:"ZOOM" envDefault:"5"`
	}

	Upstream struct {
		TileServerURL string        `env:"TILE_SERVER_URL" envDefault:"https://tile.openstreetmap.org"`
		UserAgent     string        `env:"USER_AGENT" envDefault:"slippymap/1.0 (https://github.com/jaennil/slippymap)"`
		Timeout       time.Duration `env:"TIMEOUT" envDefault:"30s"`
		Workers       int           `env:"WORKERS" envDefault:"6"`
	}

	Store struct {
		Driver     string `env:"DRIVER" envDefault:"memory"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"file:tiles.db?cache=shared&mode=memory"`
	}

	Redis struct {
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"24h"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
