package config

// DBConfig locates the PostgreSQL database that holds the security event log.
type DBConfig struct {
	// Enabled turns the audit log on. When false no database is opened and
	// security events are only logged.
	Enabled bool `env:"ENABLED" envDefault:"true"`

	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"sessiongate"`
	Password string `env:"PASSWORD" envDefault:"sessiongate"`
	Name     string `env:"NAME"     envDefault:"sessiongate"`
	// SSLMode is passed through to libpq semantics; use "require" outside local dev.
	SSLMode string `env:"SSL_MODE" envDefault:"disable"`

	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig locates the Redis deployment that holds principal snapshots.
// Exactly one topology is used: cluster, then sentinel, then a single node at URI.
type RedisConfig struct {
	// Enabled turns principal snapshots on. Without Redis the custom-auth
	// role source is unavailable and only provider claims grant admin.
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// URI is redis://, rediss:// or a bare host:port.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`

	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`

	UseCluster   bool     `env:"USE_CLUSTER"   envDefault:"false"`
	ClusterNodes []string `env:"CLUSTER_NODES" envDefault:""`

	KeyPrefix string `env:"KEY_PREFIX" envDefault:"sessiongate:principal:"`
}
