package vesting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gagliardetto/solana-go"
	jsoniter "github.com/json-iterator/go"

	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPOracle reads locked balances from a stream indexer REST API.
type HTTPOracle struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPOracle creates an oracle with optional proxy support.
func NewHTTPOracle(baseURL, apiKey, proxyURL string) *HTTPOracle {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPOracle{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

type lockedResponse struct {
	Locked uint64 `json:"locked"`
}

type investorEntry struct {
	Stream      string `json:"stream"`
	Destination string `json:"destination"`
}

func (o *HTTPOracle) LockedAmount(ctx context.Context, stream solana.PublicKey, asOf time.Time) (uint64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/streams/%s/locked?at=%d", o.BaseURL, stream, asOf.Unix())
	var result lockedResponse
	status, err := o.get(ctx, endpoint, &result)
	if status == http.StatusNotFound {
		return 0, errors.ErrInvalidStream.Newf("unknown stream %s", stream)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch locked amount: %w", err)
	}
	return result.Locked, nil
}

func (o *HTTPOracle) Investors(ctx context.Context) ([]model.Investor, error) {
	var entries []investorEntry
	if _, err := o.get(ctx, o.BaseURL+"/api/v1/investors", &entries); err != nil {
		return nil, fmt.Errorf("fetch investors: %w", err)
	}
	out := make([]model.Investor, 0, len(entries))
	for _, e := range entries {
		stream, err := solana.PublicKeyFromBase58(e.Stream)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidStream, "stream %q", e.Stream)
		}
		dest, err := solana.PublicKeyFromBase58(e.Destination)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidAccount, "destination %q", e.Destination)
		}
		out = append(out, model.Investor{Stream: stream, Destination: dest})
	}
	return out, nil
}

func (o *HTTPOracle) get(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode: %w", err)
	}
	return resp.StatusCode, nil
}
