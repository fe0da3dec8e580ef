package config

var Conf Config

type Config struct {
	Application Application `yaml:"application" json:"application"`
}

type Application struct {
	Name        string     `yaml:"name" json:"name"`
	DisplayName string     `yaml:"display-name" json:"display_name"`
	Environment string     `yaml:"environment" json:"environment"`
	Server      Server     `yaml:"server" json:"server"`
	Datasource  Datasource `yaml:"datasource" json:"datasource"`
	Migration   string     `yaml:"migration"`
	Redis       Redis      `yaml:"redis" json:"redis"`
	Kafka       Kafka      `yaml:"kafka" json:"kafka"`
	Crypto      Crypto     `yaml:"crypto" json:"crypto"`
	Token       Token      `yaml:"token" json:"token"`
	Recovery    Recovery   `yaml:"recovery" json:"recovery"`
	Callback    Callback   `yaml:"callback" json:"callback"`

	// Master key for at-rest encryption of server private keys,
	// base64-encoded. Empty disables encryption for newly written rows.
	MasterDBEncryptionKey string `yaml:"master-db-encryption-key" json:"-"`

	// When true, every REST call must carry integration credentials.
	RestrictAccess bool `yaml:"restrict-access" json:"restrict_access"`
}

type Server struct {
	ContextPath string `yaml:"context-path" json:"context_path"`
	ApiVersion  string `yaml:"api-version" json:"api_version"`
	Port        string `yaml:"port"`
}

type Datasource struct {
	PrimaryURL            string `yaml:"primary-url" json:"primary_url"`
	MaxIdleConnections    int    `yaml:"max-idle-connections" json:"max_idle_connections"`
	MaxOpenConnections    int    `yaml:"max-open-connections" json:"max_open_connections"`
	ConnectionMaxLifetime int    `yaml:"connection-max-lifetime" json:"connection_max_lifetime"`

	// Row lock wait bound in milliseconds; waits past this bound surface
	// to callers as ERR_CONCURRENCY.
	LockTimeoutMillis int `yaml:"lock-timeout-ms" json:"lock_timeout_ms"`
}

type Redis struct {
	Host string `yaml:"address" json:"address"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

type Crypto struct {
	ActivationIdIterations   int `yaml:"activation-id-iterations" json:"activation_id_iterations"`
	ActivationCodeIterations int `yaml:"activation-code-iterations" json:"activation_code_iterations"`
	TokenIdIterations        int `yaml:"token-id-iterations" json:"token_id_iterations"`
	RecoveryCodeIterations   int `yaml:"recovery-code-iterations" json:"recovery_code_iterations"`

	// Window between Init and Commit in milliseconds.
	ActivationValidityMillis int64 `yaml:"activation-validity-ms" json:"activation_validity_ms"`

	SignatureMaxFailedAttempts   int64 `yaml:"signature-max-failed-attempts" json:"signature_max_failed_attempts"`
	SignatureValidationLookahead int64 `yaml:"signature-validation-lookahead" json:"signature_validation_lookahead"`
}

type Token struct {
	TimestampValidityMillis int64 `yaml:"timestamp-validity-ms" json:"timestamp_validity_ms"`
}

type Recovery struct {
	MaxFailedAttempts int64 `yaml:"max-failed-attempts" json:"max_failed_attempts"`
	PuksPerCode       int   `yaml:"puks-per-code" json:"puks_per_code"`
}

type Callback struct {
	QueueSize         int    `yaml:"queue-size" json:"queue_size"`
	Workers           int    `yaml:"workers" json:"workers"`
	HttpTimeoutMillis int    `yaml:"http-timeout-ms" json:"http_timeout_ms"`
	HttpProxyURL      string `yaml:"http-proxy-url" json:"http_proxy_url"`
}

// ApplyDefaults fills every retry budget, validity window and pool size the
// yaml file left at zero with its documented default.
func ApplyDefaults(c *Config) {
	a := &c.Application
	if a.Crypto.ActivationIdIterations == 0 {
		a.Crypto.ActivationIdIterations = 10
	}
	if a.Crypto.ActivationCodeIterations == 0 {
		a.Crypto.ActivationCodeIterations = 10
	}
	if a.Crypto.TokenIdIterations == 0 {
		a.Crypto.TokenIdIterations = 10
	}
	if a.Crypto.RecoveryCodeIterations == 0 {
		a.Crypto.RecoveryCodeIterations = 10
	}
	if a.Crypto.ActivationValidityMillis == 0 {
		a.Crypto.ActivationValidityMillis = 120000
	}
	if a.Crypto.SignatureMaxFailedAttempts == 0 {
		a.Crypto.SignatureMaxFailedAttempts = 5
	}
	if a.Crypto.SignatureValidationLookahead == 0 {
		a.Crypto.SignatureValidationLookahead = 20
	}
	if a.Token.TimestampValidityMillis == 0 {
		a.Token.TimestampValidityMillis = 7200000
	}
	if a.Recovery.MaxFailedAttempts == 0 {
		a.Recovery.MaxFailedAttempts = 5
	}
	if a.Recovery.PuksPerCode == 0 {
		a.Recovery.PuksPerCode = 3
	}
	if a.Datasource.LockTimeoutMillis == 0 {
		a.Datasource.LockTimeoutMillis = 10000
	}
	if a.Callback.QueueSize == 0 {
		a.Callback.QueueSize = 64
	}
	if a.Callback.Workers == 0 {
		a.Callback.Workers = 5
	}
	if a.Callback.HttpTimeoutMillis == 0 {
		a.Callback.HttpTimeoutMillis = 5000
	}
}
