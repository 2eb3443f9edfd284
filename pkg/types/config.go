package types

// Config is the service configuration, merged from config files and
// environment variables.
type Config struct {
	Host          string `json:"host" yaml:"host"`
	Port          int    `json:"port" yaml:"port"`
	PreviewDomain string `json:"previewDomain" yaml:"previewDomain"`

	// PublicURL is the externally reachable base URL of this service,
	// used to derive the status and websocket URLs handed to clients.
	// Defaults to http://<host>:<port>.
	PublicURL  string `json:"publicUrl" yaml:"publicUrl"`
	DataDir    string `json:"dataDir" yaml:"dataDir"`
	LogLevel   string `json:"logLevel" yaml:"logLevel"`
	EnableCORS bool   `json:"enableCors" yaml:"enableCors"`

	// Model is the default inference model as "provider/model".
	Model string `json:"model" yaml:"model"`

	Provider map[string]ProviderConfig `json:"provider" yaml:"provider"`
	Quota    QuotaConfig               `json:"quota" yaml:"quota"`
}

// ProviderConfig configures one inference provider.
type ProviderConfig struct {
	APIKey    string `json:"apiKey" yaml:"apiKey"`
	BaseURL   string `json:"baseUrl,omitempty" yaml:"baseUrl"`
	Model     string `json:"model,omitempty" yaml:"model"`
	MaxTokens int    `json:"maxTokens,omitempty" yaml:"maxTokens"`
	Disabled  bool   `json:"disabled,omitempty" yaml:"disabled"`
}

// QuotaConfig configures the default bootstrap quota gate.
type QuotaConfig struct {
	SessionsPerHour int `json:"sessionsPerHour" yaml:"sessionsPerHour"`
}
