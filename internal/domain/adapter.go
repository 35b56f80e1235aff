package domain

import "time"

// AdapterRole tags an adapter inside the registry. A registry holds exactly
// one RoleDefault and at most one RoleFallback.
type AdapterRole int

const (
	RoleNone AdapterRole = iota
	RoleDefault
	RoleFallback
)

func (r AdapterRole) String() string {
	switch r {
	case RoleDefault:
		return "default"
	case RoleFallback:
		return "fallback"
	default:
		return "none"
	}
}

// LocalEndpoint stands in for an endpoint URI on adapters that never leave
// the process.
const LocalEndpoint = "local-data"

type AdapterInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint,omitempty"`
	Default     bool   `json:"default"`
	Fallback    bool   `json:"fallback"`
	Paged       bool   `json:"paged"`
}

type AdapterList struct {
	Adapters       []AdapterInfo `json:"adapters"`
	DefaultAdapter string        `json:"defaultAdapter"`
}

type AdapterDiagnostics struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	LastError     string     `json:"lastError,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout   bool       `json:"lastTimeout,omitempty"`
	LastQuery     string     `json:"lastQuery,omitempty"`
	LastEmpty     bool       `json:"lastEmpty,omitempty"`
	TotalRequests int64      `json:"totalRequests,omitempty"`
	TotalFailures int64      `json:"totalFailures,omitempty"`
	TimeoutCount  int64      `json:"timeoutCount,omitempty"`
	FallbackCount int64      `json:"fallbackCount,omitempty"`
}
