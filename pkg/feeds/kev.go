package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sbomtools/vulnrank/pkg/logging"
)

// DefaultKEVURL is the CISA known-exploited-vulnerabilities catalog.
const DefaultKEVURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

// KEVCatalog holds the set of advisory ids confirmed to be actively
// exploited. The catalog is one document; it is loaded whole and queried
// locally. A failed refresh keeps the previous data so lookups keep
// working on stale information rather than none.
type KEVCatalog struct {
	url    string
	client *http.Client

	mu  sync.RWMutex
	ids map[string]bool
}

// NewKEVCatalog creates an empty catalog against the given URL; an empty
// URL selects the CISA feed. Call Refresh before the first lookup.
func NewKEVCatalog(url string, client *http.Client) *KEVCatalog {
	if url == "" {
		url = DefaultKEVURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &KEVCatalog{url: url, client: client, ids: make(map[string]bool)}
}

type kevDocument struct {
	Vulnerabilities []struct {
		CVEID string `json:"cveID"`
	} `json:"vulnerabilities"`
}

// Refresh downloads the catalog and swaps in the new id set.
func (k *KEVCatalog) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("building KEV request: %w", err)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching KEV catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("KEV catalog responded %d", resp.StatusCode)
	}

	var doc kevDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decoding KEV catalog: %w", err)
	}

	ids := make(map[string]bool, len(doc.Vulnerabilities))
	for _, v := range doc.Vulnerabilities {
		if v.CVEID != "" {
			ids[v.CVEID] = true
		}
	}

	k.mu.Lock()
	k.ids = ids
	k.mu.Unlock()

	logging.Info("KEV catalog refreshed", "entries", len(ids))
	return nil
}

// Contains reports whether the advisory is in the catalog.
func (k *KEVCatalog) Contains(advisoryID string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.ids[advisoryID]
}

// Len returns the number of catalog entries currently loaded.
func (k *KEVCatalog) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.ids)
}
