package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"nodetap/config"
	"nodetap/datastore"
	"nodetap/kubelet"
	"nodetap/log"
	"nodetap/scraper"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/common/version"
)

var (
	kubeletHost = kingpin.Flag("kubelet-host", "Kubelet address to scrape (overrides KUBELET_HOST).").String()
	kubeletPort = kingpin.Flag("kubelet-port", "Kubelet port (overrides KUBELET_PORT).").String()
	tagTemplate = kingpin.Flag("tag", "Event tag pattern; a single '*' is replaced with the metric name (overrides TAG_TEMPLATE).").String()
	interval    = kingpin.Flag("interval", "Scrape interval (overrides SCRAPE_INTERVAL).").Duration()
)

func main() {
	kingpin.Version(version.Print("nodetap"))
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	scrapeConf := config.ScrapeFromEnv()
	if *tagTemplate != "" {
		scrapeConf.TagTemplate = *tagTemplate
	}
	if *interval > 0 {
		scrapeConf.Interval = *interval
	}

	kubeletConf := config.KubeletFromEnv()
	if *kubeletHost != "" {
		kubeletConf.Host = *kubeletHost
	}
	if *kubeletPort != "" {
		kubeletConf.Port = *kubeletPort
	}

	backendConf := config.BackendFromEnv()

	// Config problems are fatal before the first scrape, never per cycle.
	if err := scrapeConf.Validate(); err != nil {
		log.Logger.Fatal().Err(err).Msg("invalid scrape config")
	}
	if err := backendConf.Validate(); err != nil {
		log.Logger.Fatal().Err(err).Msg("invalid backend config")
	}

	client, err := kubelet.NewClient(kubeletConf)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("failed to create kubelet client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if kubeletConf.InCluster {
		if err := client.WatchToken(ctx); err != nil {
			log.Logger.Warn().Err(err).Msg("token rotation watcher not started")
		}
	}

	ds := datastore.NewBackendDS(backendConf, scrapeConf)
	s := scraper.New(client, ds, scrapeConf)
	go s.Run(ctx)

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	go func() {
		log.Logger.Info().Msg("listen on 8198")
		if err := http.ListenAndServe(":8198", nil); err != nil {
			log.Logger.Error().Err(err).Msg("health server stopped")
		}
	}()

	log.Logger.Info().
		Str("node", scrapeConf.NodeName).
		Str("kubelet", client.URL()).
		Str("tag", scrapeConf.TagTemplate).
		Msg("nodetap started")

	<-ctx.Done()
}
