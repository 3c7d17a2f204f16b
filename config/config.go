package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type KubeletConfig struct {
	Host      string
	Port      string
	InCluster bool
	// TokenPath is the mounted service account token, watched for rotation.
	TokenPath string
}

type ScrapeConfig struct {
	NodeName    string
	Interval    time.Duration
	TagTemplate string
}

type BackendConfig struct {
	Host string
	Port string

	SelfTelemetry         bool
	SelfTelemetryInterval time.Duration
}

const defaultTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

func KubeletFromEnv() KubeletConfig {
	host := os.Getenv("KUBELET_HOST")
	if host == "" {
		host = os.Getenv("NODE_IP")
	}
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("KUBELET_PORT")
	if port == "" {
		port = "10250"
	}

	tokenPath := os.Getenv("SA_TOKEN_PATH")
	if tokenPath == "" {
		tokenPath = defaultTokenPath
	}

	return KubeletConfig{
		Host:      host,
		Port:      port,
		InCluster: os.Getenv("IN_CLUSTER") != "false",
		TokenPath: tokenPath,
	}
}

func ScrapeFromEnv() ScrapeConfig {
	interval := 15 * time.Second
	if n, err := strconv.Atoi(os.Getenv("SCRAPE_INTERVAL")); err == nil && n > 0 {
		interval = time.Duration(n) * time.Second
	}

	tmpl := os.Getenv("TAG_TEMPLATE")
	if tmpl == "" {
		tmpl = "kube.*"
	}

	return ScrapeConfig{
		NodeName:    os.Getenv("NODE_NAME"),
		Interval:    interval,
		TagTemplate: tmpl,
	}
}

func BackendFromEnv() BackendConfig {
	telemetryInterval := 60 * time.Second
	if n, err := strconv.Atoi(os.Getenv("SELF_TELEMETRY_INTERVAL")); err == nil && n > 0 {
		telemetryInterval = time.Duration(n) * time.Second
	}

	return BackendConfig{
		Host:                  os.Getenv("BACKEND_HOST"),
		Port:                  os.Getenv("BACKEND_PORT"),
		SelfTelemetry:         os.Getenv("SELF_TELEMETRY") == "true",
		SelfTelemetryInterval: telemetryInterval,
	}
}

// Validate is called once at startup. A bad config is fatal, never a
// per-cycle condition.
func (c ScrapeConfig) Validate() error {
	if c.NodeName == "" {
		return fmt.Errorf("NODE_NAME is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("scrape interval must be positive, got %s", c.Interval)
	}
	if c.TagTemplate == "" {
		return fmt.Errorf("tag template must not be empty")
	}
	return nil
}

func (c BackendConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("BACKEND_HOST is required")
	}
	if c.Port == "" {
		return fmt.Errorf("BACKEND_PORT is required")
	}
	return nil
}
