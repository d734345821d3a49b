package config

// Log configures the structured logger and its optional rotated file sink.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Programs names the component identities, in bech32 or 0x-hex form.
type Programs struct {
	Directory string `toml:"Directory"`
	Tracker   string `toml:"Tracker"`
	Custody   string `toml:"Custody"`
}

// RPC configures the JSON-RPC server.
type RPC struct {
	// JWTSecretEnv names the environment variable holding the HMAC secret
	// write requests must be signed with. Empty disables bearer auth.
	JWTSecretEnv        string   `toml:"JWTSecretEnv"`
	JWTIssuer           string   `toml:"JWTIssuer"`
	RateLimitPerSecond  float64  `toml:"RateLimitPerSecond"`
	RateLimitBurst      int      `toml:"RateLimitBurst"`
	ReadHeaderTimeout   int      `toml:"ReadHeaderTimeout"`
	ReadTimeout         int      `toml:"ReadTimeout"`
	WriteTimeout        int      `toml:"WriteTimeout"`
	IdleTimeout         int      `toml:"IdleTimeout"`
	MaxRequestBodyBytes int64    `toml:"MaxRequestBodyBytes"`
	TrustedProxies      []string `toml:"TrustedProxies"`
}

// Indexer configures the event index.
type Indexer struct {
	DSN string `toml:"DSN"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	OTLPEndpoint string `toml:"OTLPEndpoint"`
	Insecure     bool   `toml:"Insecure"`
	Metrics      bool   `toml:"Metrics"`
	Traces       bool   `toml:"Traces"`
}
