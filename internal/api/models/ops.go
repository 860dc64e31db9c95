package models

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Version   string           `json:"version,omitempty"`
	Checks    []CheckStatus    `json:"checks,omitempty"`
	Upstreams []UpstreamStatus `json:"upstreams,omitempty"`
}

// CheckStatus is the result of one readiness dependency check.
type CheckStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// UpstreamStatus reports the circuit state of one remote station source.
type UpstreamStatus struct {
	Name          string       `json:"name"`
	Status        HealthStatus `json:"status"`
	State         string       `json:"state"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError     string       `json:"lastError,omitempty"`
}
