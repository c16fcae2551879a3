package telemetry

// Config holds the tracing and continuous-profiling configuration for one
// coordinator, storage node, or client process.
type Config struct {
	// Enabled indicates whether request tracing is enabled
	Enabled bool

	// ServiceName is the name of the service reported to the trace and
	// profiling backends (e.g. "docstore-coordinator")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317")
	Endpoint string

	// Insecure indicates whether to use insecure connection (no TLS)
	Insecure bool

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	// 1.0 means sample all traces, 0.5 means sample 50%
	SampleRate float64

	// ProfilingEnabled starts a Pyroscope continuous profiler alongside
	// the tracer when true.
	ProfilingEnabled bool

	// ProfilingEndpoint is the Pyroscope server address (e.g.
	// "localhost:4040").
	ProfilingEndpoint string
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		ServiceName:       "docstore",
		ServiceVersion:    "dev",
		Endpoint:          "localhost:4317",
		Insecure:          true,
		SampleRate:        1.0,
		ProfilingEnabled:  false,
		ProfilingEndpoint: "localhost:4040",
	}
}

// FromAppConfig adapts pkg/config's TelemetryConfig (the layered,
// viper-loaded configuration) into the shape Init expects, so coordinator
// and storage node main()s don't need to know telemetry's internal Config
// type.
func FromAppConfig(enabled bool, serviceName, endpoint string, insecure bool, sampleRate float64, profilingEnabled bool, profilingEndpoint string) Config {
	cfg := DefaultConfig()
	cfg.Enabled = enabled
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	cfg.Insecure = insecure
	cfg.SampleRate = sampleRate
	cfg.ProfilingEnabled = profilingEnabled
	if profilingEndpoint != "" {
		cfg.ProfilingEndpoint = profilingEndpoint
	}
	return cfg
}
