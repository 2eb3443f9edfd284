// Package types defines the shared data model for the AppForge
// orchestration core: sessions, conversation messages, stream events and
// service configuration.
package types

// Session represents one end-to-end application-generation run. It is
// created once by the bootstrap controller and owned by the stateful
// generation agent for its lifetime.
type Session struct {
	ID               string   `json:"id"`
	UserID           string   `json:"userId"`
	Query            string   `json:"query"`
	Language         string   `json:"language"`
	Frameworks       []string `json:"frameworks"`
	SelectedTemplate string   `json:"selectedTemplate"`
	AgentMode        string   `json:"agentMode"`

	// Derived at bootstrap from the preview domain.
	Hostname      string `json:"hostname"`
	WebsocketURL  string `json:"websocketUrl"`
	HTTPStatusURL string `json:"httpStatusUrl"`

	// SandboxSessionID identifies the template sandbox backing this run.
	SandboxSessionID string `json:"sandboxSessionId"`

	TemplateName string      `json:"templateName,omitempty"`
	Time         SessionTime `json:"time"`
}

// SessionTime carries creation and update timestamps in Unix milliseconds.
type SessionTime struct {
	Created int64  `json:"created"`
	Updated *int64 `json:"updated,omitempty"`
}

// ModelOverride is a per-user, per-action model configuration entry.
// Entries with IsUserOverride false are inherited defaults and are never
// forwarded into an agent's inference context.
type ModelOverride struct {
	Model          string  `json:"model"`
	MaxTokens      int     `json:"maxTokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	IsUserOverride bool    `json:"isUserOverride"`
}

// InferenceContext travels with every inference call made on behalf of a
// session. Only user-customized model overrides are carried.
type InferenceContext struct {
	SessionID             string                   `json:"sessionId"`
	UserID                string                   `json:"userId"`
	EnableRealtimeCodeFix bool                     `json:"enableRealtimeCodeFix"`
	ModelOverrides        map[string]ModelOverride `json:"modelOverrides,omitempty"`
}
