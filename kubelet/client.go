package kubelet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nodetap/config"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Client fetches the stats summary of a single kubelet over authenticated
// HTTPS. The underlying transport is built once and only swapped when the
// service account token rotates.
type Client struct {
	url  string
	conf config.KubeletConfig

	mu   sync.RWMutex
	http *http.Client
}

func NewClient(conf config.KubeletConfig) (*Client, error) {
	c := &Client{
		url:  fmt.Sprintf("https://%s:%s/stats/summary", conf.Host, conf.Port),
		conf: conf,
	}
	if err := c.rebuildTransport(); err != nil {
		return nil, err
	}
	return c, nil
}

func restConfig(inCluster bool) (*rest.Config, error) {
	if inCluster {
		conf, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("unable to get incluster kubeconfig: %w", err)
		}
		return conf, nil
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}
	conf, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("unable to load kubeconfig %s: %w", kubeconfig, err)
	}
	return conf, nil
}

func (c *Client) rebuildTransport() error {
	conf, err := restConfig(c.conf.InCluster)
	if err != nil {
		return err
	}
	// Kubelet serving certs are commonly self-signed and issued for the node
	// name rather than the address we dial, so verification is skipped. The
	// rest config rejects Insecure with CA material present.
	conf.TLSClientConfig.Insecure = true
	conf.TLSClientConfig.CAFile = ""
	conf.TLSClientConfig.CAData = nil

	hc, err := rest.HTTPClientFor(conf)
	if err != nil {
		return fmt.Errorf("unable to build kubelet http client: %w", err)
	}
	hc.Timeout = 10 * time.Second

	c.mu.Lock()
	c.http = hc
	c.mu.Unlock()
	return nil
}

// Fetch performs one GET against the stats summary endpoint and returns the
// raw body along with the HTTP status code. It never retries; the periodic
// scrape timer is the only retry mechanism.
func (c *Client) Fetch(ctx context.Context) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating summary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	hc := c.http
	c.mu.RUnlock()

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error fetching %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading summary response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// URL returns the summary endpoint this client is bound to.
func (c *Client) URL() string {
	return c.url
}
