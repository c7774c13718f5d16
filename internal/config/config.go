// Package config holds clockboundd's YAML configuration shape and the
// load/validate/default-fill pipeline the CLI commands in cmd/clockboundd
// run it through.
package config

// Config is the top-level clockboundd configuration document.
type Config struct {
	Runner RunnerConfig `yaml:"runner"`
	Server ServerConfig `yaml:"server"`
	Output OutputConfig `yaml:"output"`
}

// RunnerConfig configures the control loop in internal/runner.
type RunnerConfig struct {
	MaxDriftRatePPB               uint32 `yaml:"max_drift_rate_ppb,omitempty"`
	DisableClockDisruptionSupport bool   `yaml:"disable_clock_disruption_support,omitempty"`
	JSONOutput                    bool   `yaml:"json_output,omitempty"`

	ClockErrorBoundSource string `yaml:"clock_error_bound_source,omitempty"` // "chrony-udp" or "chronyc"
	ChronyAddr            string `yaml:"chrony_addr,omitempty"`

	PHCRefID     string `yaml:"phc_ref_id,omitempty"`
	PHCInterface string `yaml:"phc_interface,omitempty"`

	ClockboundShmPath string `yaml:"clockbound_shm_path,omitempty"`
	VMClockShmPath    string `yaml:"vmclock_shm_path,omitempty"`
}

// ServerConfig configures the optional introspection front doors.
type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http,omitempty"`
	SSH  SSHConfig  `yaml:"ssh,omitempty"`
}

// HTTPConfig configures the status API (SPEC_FULL.md §4.11).
type HTTPConfig struct {
	Enable   bool   `yaml:"enable,omitempty"`
	BindAddr string `yaml:"bind_addr,omitempty"`
}

// SSHConfig configures the debug console (SPEC_FULL.md §4.12).
type SSHConfig struct {
	Enable         bool   `yaml:"enable,omitempty"`
	BindAddr       string `yaml:"bind_addr,omitempty"`
	ServerKey      string `yaml:"server_key,omitempty"`
	AuthorizedKeys string `yaml:"authorized_keys,omitempty"`
}

// OutputConfig configures the optional metrics publisher (SPEC_FULL.md §4.14).
type OutputConfig struct {
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch,omitempty"`
}

// ElasticsearchConfig mirrors the teacher's metrics sink configuration.
type ElasticsearchConfig struct {
	Hosts    []string `yaml:"hosts,omitempty"`
	APIKey   string   `yaml:"api_key,omitempty"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Index    string   `yaml:"index,omitempty"`
}
