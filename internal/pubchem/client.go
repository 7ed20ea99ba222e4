// Package pubchem resolves CAS registry numbers to PubChem compound IDs via
// the PUG REST API.
package pubchem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chemstore/chemstore/internal/config"
)

const compoundPageBase = "https://pubchem.ncbi.nlm.nih.gov/compound/"

// ErrNoMatch is returned when PubChem has no compound for the CAS number.
var ErrNoMatch = errors.New("no compound match")

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(cfg config.PubChemConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// ResolveCID looks up the first PubChem compound ID registered for the CAS
// number.
func (c *Client) ResolveCID(ctx context.Context, cas string) (int64, error) {
	cas = strings.TrimSpace(cas)
	if cas == "" {
		return 0, fmt.Errorf("cas number is required")
	}

	requestURL := c.baseURL + "/compound/xref/RN/" + url.PathEscape(cas) + "/cids/JSON"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build cid request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("request cid lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read cid response body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrNoMatch
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("cid lookup failed status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		IdentifierList struct {
			CID []int64 `json:"CID"`
		} `json:"IdentifierList"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode cid response: %w", err)
	}
	if len(parsed.IdentifierList.CID) == 0 {
		return 0, ErrNoMatch
	}
	return parsed.IdentifierList.CID[0], nil
}

// CompoundURL is the public compound page for a resolved CID.
func CompoundURL(cid int64) string {
	return fmt.Sprintf("%s%d", compoundPageBase, cid)
}
