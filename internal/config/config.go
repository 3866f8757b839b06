package config

import "time"

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
		Issuer    string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	KafkaServers string
	KafkaEnabled bool
	Redis        struct {
		Addr string
		DB   int
		TTL  time.Duration
	}
	Chain struct {
		RpcURL         string
		ChainID        int64
		FactoryAddress string
		DeployerKey    string
		ConfirmTimeout time.Duration
	}
	Invite struct {
		MaxAttempts int
		BaseDelay   time.Duration
	}
	ReconcileInterval time.Duration
	RateLimit         struct {
		RPS   float64
		Burst int
	}
}
