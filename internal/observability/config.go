package observability

import "prepforge/internal/config"

// GetObservabilityConfig flattens the nested file configuration into the
// runtime settings NewObservabilityManager consumes. A nil config yields
// development defaults with console output enabled.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    "prepforge",
			ServiceVersion: version,
			Enabled:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Prometheus:     GetPrometheusConfig(nil),
		}
	}

	// The binary version stands in when no service version is configured.
	serviceVersion := cfg.Observability.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	return ObservabilityConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: serviceVersion,
		Enabled:        cfg.Observability.Enabled,
		ConsoleOutput:  cfg.Observability.ConsoleOutput,
		PrettyPrint:    cfg.Observability.Console.PrettyPrint,
		SampleRate:     cfg.Observability.SampleRate,
		Prometheus:     GetPrometheusConfig(cfg),
	}
}
