package cmd

import (
	"fmt"

	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/remote"
	"github.com/wesm/catalogview/internal/store"
)

// IsRemoteMode returns true if commands should talk to the catalog API.
// Resolution order:
//  1. --local flag → always the local mirror
//  2. [catalog].url set in config → use the API
//  3. Default → use the local mirror
func IsRemoteMode() bool {
	if useLocal {
		return false
	}
	return cfg != nil && cfg.Catalog.URL != ""
}

// backend is a catalog backend plus the resource behind it.
type backend struct {
	catalog.Backend
	// apiBase is the API root used for icon URLs; empty for the mirror.
	apiBase string
	close   func() error
}

func (b *backend) Close() error { return b.close() }

// openBackend returns the catalog API client or the local mirror.
func openBackend() (*backend, error) {
	if IsRemoteMode() {
		c, err := openClient()
		if err != nil {
			return nil, err
		}
		return &backend{Backend: c, apiBase: c.BaseURL(), close: c.Close}, nil
	}
	s, err := openMirror()
	if err != nil {
		return nil, err
	}
	return &backend{Backend: s, close: s.Close}, nil
}

// openClient creates a catalog API client, returning an error if no
// URL is configured.
func openClient() (*remote.Client, error) {
	if cfg.Catalog.URL == "" {
		return nil, fmt.Errorf("catalog API not configured\n\n" +
			"Configure in ~/.catalogview/config.toml:\n" +
			"  [catalog]\n" +
			"  url = \"https://console.example.com/api/catalog/v1\"\n" +
			"  token = \"your-token\"\n\n" +
			"or set CATALOGVIEW_URL and CATALOGVIEW_TOKEN")
	}
	return remote.New(remote.Config{
		URL:           cfg.Catalog.URL,
		Token:         cfg.Catalog.Token,
		AllowInsecure: cfg.Catalog.AllowInsecure,
		Timeout:       cfg.Timeout(),
		RateLimitQPS:  cfg.Catalog.RateLimitQPS,
		Logger:        logger,
	})
}

// openMirror opens the local SQLite mirror and brings its schema up to
// date.
func openMirror() (*store.Store, error) {
	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// MustBeRemote returns an error when a command needs the catalog API
// but the local mirror is selected.
func MustBeRemote(command string) error {
	if !IsRemoteMode() {
		if useLocal {
			return fmt.Errorf("%s needs the catalog API and cannot run with --local", command)
		}
		_, err := openClient()
		return err
	}
	return nil
}
