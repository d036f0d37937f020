package renderer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Script names served under the asset routes.
const (
	AssetReact    = "react.js"
	AssetReactDOM = "react-dom.js"
	AssetBabel    = "babel.js"
)

// AssetCache fetches the pinned runtime scripts once and serves them from
// memory afterwards. A disk copy survives restarts so a network outage at
// startup does not take rendering down with it.
type AssetCache struct {
	client *resty.Client
	config DocumentConfig
	dir    string

	mu   sync.RWMutex
	memo map[string][]byte
}

// NewAssetCache creates a cache backed by dir. An empty dir disables the
// disk layer.
func NewAssetCache(config DocumentConfig, dir string) *AssetCache {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &AssetCache{
		client: client,
		config: config,
		dir:    dir,
		memo:   make(map[string][]byte),
	}
}

// LocalDocumentConfig returns a script set pointing at the server's own
// asset routes instead of the CDN.
func LocalDocumentConfig(base string) DocumentConfig {
	return DocumentConfig{
		ReactURL:    base + "/" + AssetReact,
		ReactDOMURL: base + "/" + AssetReactDOM,
		BabelURL:    base + "/" + AssetBabel,
	}
}

func (c *AssetCache) urlFor(name string) (string, error) {
	switch name {
	case AssetReact:
		return c.config.ReactURL, nil
	case AssetReactDOM:
		return c.config.ReactDOMURL, nil
	case AssetBabel:
		return c.config.BabelURL, nil
	}
	return "", fmt.Errorf("unknown asset %q", name)
}

// Script returns the named runtime script, fetching it on first use.
func (c *AssetCache) Script(ctx context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	if data, ok := c.memo[name]; ok {
		c.mu.RUnlock()
		return data, nil
	}
	c.mu.RUnlock()

	url, err := c.urlFor(name)
	if err != nil {
		return nil, err
	}

	if data, ok := c.readDisk(url); ok {
		c.store(name, data)
		return data, nil
	}

	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", name, resp.StatusCode())
	}

	data := resp.Body()
	c.writeDisk(url, data)
	c.store(name, data)
	return data, nil
}

// Prefetch warms all three scripts. Called at startup so the first render
// does not pay the download cost.
func (c *AssetCache) Prefetch(ctx context.Context) error {
	for _, name := range []string{AssetReact, AssetReactDOM, AssetBabel} {
		if _, err := c.Script(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *AssetCache) store(name string, data []byte) {
	c.mu.Lock()
	c.memo[name] = data
	c.mu.Unlock()
}

func (c *AssetCache) diskPath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".js")
}

func (c *AssetCache) readDisk(url string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.diskPath(url))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *AssetCache) writeDisk(url string, data []byte) {
	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	// Best effort; the in-memory copy is authoritative.
	_ = os.WriteFile(c.diskPath(url), data, 0o644)
}
