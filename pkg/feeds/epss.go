package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sbomtools/vulnrank/pkg/model"
)

// DefaultEPSSURL is the FIRST.org EPSS API endpoint.
const DefaultEPSSURL = "https://api.first.org/data/v1/epss"

// EPSSClient fetches exploit-probability scores per advisory. It does
// one request per ask; rate limiting and batching are the collector's
// concern, retry and caching policy are the caller's.
type EPSSClient struct {
	baseURL string
	client  *http.Client
}

// NewEPSSClient creates a client against the given endpoint; an empty
// endpoint selects the public API.
func NewEPSSClient(baseURL string, client *http.Client) *EPSSClient {
	if baseURL == "" {
		baseURL = DefaultEPSSURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &EPSSClient{baseURL: baseURL, client: client}
}

type epssResponse struct {
	Data []struct {
		CVE  string `json:"cve"`
		EPSS string `json:"epss"`
	} `json:"data"`
}

// Probability returns the advisory's exploit probability. An advisory
// the feed does not know yields an absent score, not an error.
func (c *EPSSClient) Probability(ctx context.Context, advisoryID string) (model.Score, error) {
	u := fmt.Sprintf("%s?cve=%s", c.baseURL, url.QueryEscape(advisoryID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Score{}, fmt.Errorf("building EPSS request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Score{}, fmt.Errorf("fetching EPSS for %s: %w", advisoryID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Score{}, fmt.Errorf("EPSS responded %d for %s", resp.StatusCode, advisoryID)
	}

	var body epssResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Score{}, fmt.Errorf("decoding EPSS response for %s: %w", advisoryID, err)
	}

	if len(body.Data) == 0 {
		return model.Score{}, nil
	}

	prob, err := strconv.ParseFloat(body.Data[0].EPSS, 64)
	if err != nil {
		return model.Score{}, fmt.Errorf("parsing EPSS value %q for %s: %w", body.Data[0].EPSS, advisoryID, err)
	}
	return model.KnownScore(prob), nil
}
