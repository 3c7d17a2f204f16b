package kubelet

import (
	"context"
	"path/filepath"

	"nodetap/log"

	"github.com/fsnotify/fsnotify"
)

// WatchToken rebuilds the kubelet transport whenever the mounted service
// account token rotates. Projected tokens are replaced by the kubelet via a
// symlink swap in the secret directory, so the directory is watched rather
// than the file itself.
func (c *Client) WatchToken(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.conf.TokenPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	logger := log.With("tokenwatch")

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("context done, stopping token watcher")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					logger.Info().Msg("fsnotify events channel closed")
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				logger.Info().Str("op", event.Op.String()).Str("path", event.Name).
					Msg("service account token changed, rebuilding kubelet transport")
				if err := c.rebuildTransport(); err != nil {
					logger.Error().Err(err).Msg("failed to rebuild kubelet transport")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					logger.Info().Msg("fsnotify errors channel closed")
					return
				}
				logger.Error().Err(err).Msg("fsnotify error")
			}
		}
	}()

	return nil
}
