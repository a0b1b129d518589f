package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fr0stylo/auditfeed/internal/feed"
)

// IngestMode selects how ingestion requests are authenticated.
type IngestMode string

const (
	IngestModeSharedKey IngestMode = "sharedkey"
	IngestModeBearer    IngestMode = "bearer"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Provider      ProviderConfig
	OAuth         OAuthConfig
	Ingestion     IngestionConfig
	Reconcile     ReconcileConfig
	Journal       JournalConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port int
	// Hostname is the public hostname subscriptions deliver webhooks to.
	Hostname string
}

type ProviderConfig struct {
	BaseURL     string
	Resource    string
	PublisherID string
}

type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

type IngestionConfig struct {
	Mode         IngestMode
	WorkspaceID  string
	WorkspaceKey string
	Endpoint     string
	Resource     string
}

type ReconcileConfig struct {
	ContentTypes []feed.ContentType
	Prune        bool
	Interval     time.Duration
}

type JournalConfig struct {
	Path string
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("auditfeed_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("auditfeed_port", 8080)
	v.SetDefault("auditfeed_hostname", "")
	v.SetDefault("auditfeed_content_types", "")
	v.SetDefault("auditfeed_provider_url", "https://manage.office.com")
	v.SetDefault("auditfeed_provider_resource", "manage.office.com")
	v.SetDefault("auditfeed_publisher_id", "")
	v.SetDefault("auditfeed_token_url", "")
	v.SetDefault("auditfeed_client_id", "")
	v.SetDefault("auditfeed_client_secret", "")
	v.SetDefault("auditfeed_ingest_mode", string(IngestModeSharedKey))
	v.SetDefault("auditfeed_workspace_id", "")
	v.SetDefault("auditfeed_workspace_key", "")
	v.SetDefault("auditfeed_ingest_endpoint", "")
	v.SetDefault("auditfeed_ingest_resource", "monitor.azure.com")
	v.SetDefault("auditfeed_prune", false)
	v.SetDefault("auditfeed_reconcile_interval", "1h")
	v.SetDefault("auditfeed_db_path", "data/auditfeed")
	v.SetDefault("auditfeed_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "")
	v.SetDefault("auditfeed_service_name", "auditfeed")
	v.SetDefault("auditfeed_version", "dev")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("auditfeed_otel_sampling_ratio", 1.0)
	v.SetDefault("auditfeed_otel_metrics_console", false)

	env := resolveEnvironment(v)
	port := v.GetInt("auditfeed_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid AUDITFEED_PORT: %d", port)
	}

	hostname := strings.TrimSpace(v.GetString("auditfeed_hostname"))
	if hostname == "" {
		return Config{}, fmt.Errorf("AUDITFEED_HOSTNAME is required")
	}

	contentTypes, err := feed.ParseContentTypes(v.GetString("auditfeed_content_types"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid AUDITFEED_CONTENT_TYPES: %w", err)
	}

	interval, err := time.ParseDuration(strings.TrimSpace(v.GetString("auditfeed_reconcile_interval")))
	if err != nil || interval <= 0 {
		return Config{}, fmt.Errorf("invalid AUDITFEED_RECONCILE_INTERVAL: %q", v.GetString("auditfeed_reconcile_interval"))
	}

	mode := IngestMode(strings.ToLower(strings.TrimSpace(v.GetString("auditfeed_ingest_mode"))))
	switch mode {
	case IngestModeSharedKey, IngestModeBearer:
	default:
		return Config{}, fmt.Errorf("invalid AUDITFEED_INGEST_MODE: %q", mode)
	}

	workspaceID := strings.TrimSpace(v.GetString("auditfeed_workspace_id"))
	if workspaceID == "" {
		return Config{}, fmt.Errorf("AUDITFEED_WORKSPACE_ID is required")
	}
	workspaceKey := strings.TrimSpace(v.GetString("auditfeed_workspace_key"))
	if mode == IngestModeSharedKey && workspaceKey == "" {
		return Config{}, fmt.Errorf("AUDITFEED_WORKSPACE_KEY is required in sharedkey mode")
	}

	endpoint := strings.TrimSpace(v.GetString("auditfeed_ingest_endpoint"))
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.ods.opinsights.azure.com/api/logs?api-version=2016-04-01", workspaceID)
	}

	samplingRatio := v.GetFloat64("auditfeed_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	serviceName := strings.TrimSpace(v.GetString("otel_service_name"))
	if serviceName == "" {
		serviceName = strings.TrimSpace(v.GetString("auditfeed_service_name"))
	}
	serviceVersion := strings.TrimSpace(v.GetString("auditfeed_version"))
	if serviceVersion == "" {
		serviceVersion = strings.TrimSpace(v.GetString("otel_service_version"))
	}
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("auditfeed_otel_metrics_console")
	otelEnabled := v.GetBool("auditfeed_otel_enabled") || otlpEndpoint != "" || metricsConsole

	cfg := Config{
		Environment: env,
		Server: ServerConfig{
			Port:     port,
			Hostname: hostname,
		},
		Provider: ProviderConfig{
			BaseURL:     strings.TrimSpace(v.GetString("auditfeed_provider_url")),
			Resource:    strings.TrimSpace(v.GetString("auditfeed_provider_resource")),
			PublisherID: strings.TrimSpace(v.GetString("auditfeed_publisher_id")),
		},
		OAuth: OAuthConfig{
			TokenURL:     strings.TrimSpace(v.GetString("auditfeed_token_url")),
			ClientID:     strings.TrimSpace(v.GetString("auditfeed_client_id")),
			ClientSecret: strings.TrimSpace(v.GetString("auditfeed_client_secret")),
		},
		Ingestion: IngestionConfig{
			Mode:         mode,
			WorkspaceID:  workspaceID,
			WorkspaceKey: workspaceKey,
			Endpoint:     endpoint,
			Resource:     strings.TrimSpace(v.GetString("auditfeed_ingest_resource")),
		},
		Reconcile: ReconcileConfig{
			ContentTypes: contentTypes,
			Prune:        v.GetBool("auditfeed_prune"),
			Interval:     interval,
		},
		Journal: JournalConfig{
			Path: strings.TrimSpace(v.GetString("auditfeed_db_path")),
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders),
			OTLPMetricHeaders: mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders),
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
		},
	}

	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "data/auditfeed"
	}

	return cfg, nil
}

// WebhookAddress is the subscription callback URL registered with the
// provider.
func (c Config) WebhookAddress() string {
	return fmt.Sprintf("https://%s/api/content", c.Server.Hostname)
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimSpace(pair[0])
		value := strings.TrimSpace(pair[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"auditfeed_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
