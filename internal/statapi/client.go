package statapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tonnomolt/housing-prices-fi/internal/jsonstat"
)

// TableMetadata describes a statistics table: its title and the variables
// (dimensions) it can be queried by.
type TableMetadata struct {
	Title     string     `json:"title"`
	Variables []Variable `json:"variables"`
}

// Variable is one queryable dimension of a table.
type Variable struct {
	Code       string   `json:"code"`
	Text       string   `json:"text"`
	Values     []string `json:"values"`
	ValueTexts []string `json:"valueTexts"`
	Time       bool     `json:"time"`
}

// Query is the selection posted to a table endpoint.
type Query struct {
	Query    []QueryFilter `json:"query"`
	Response ResponseSpec  `json:"response"`
}

// QueryFilter selects values for one variable.
type QueryFilter struct {
	Code      string    `json:"code"`
	Selection Selection `json:"selection"`
}

// Selection holds the filter kind and the selected values.
type Selection struct {
	Filter string   `json:"filter"`
	Values []string `json:"values"`
}

// ResponseSpec names the response format the API should produce.
type ResponseSpec struct {
	Format string `json:"format"`
}

// FetchError is returned when the statistics API answers with a non-success
// status. The decoder never originates these; they are an adapter concern.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("statistics API returned status %d for %s", e.StatusCode, e.URL)
}

// Client fetches table metadata and dataset payloads from a PxWeb-style
// statistics API.
type Client struct {
	HTTPClient *http.Client
}

// NewClient creates a client with a sane default timeout.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetTableMetadata fetches the title and variable list of a table.
func (c *Client) GetTableMetadata(ctx context.Context, tableURL string) (*TableMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tableURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata request for %s: %w", tableURL, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch table metadata from %s: %w", tableURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: tableURL, StatusCode: resp.StatusCode}
	}

	var metadata TableMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode table metadata from %s: %w", tableURL, err)
	}
	return &metadata, nil
}

// QueryDataset posts a selection query to a table endpoint and returns the
// raw json-stat2 payload for the decoder.
func (c *Client) QueryDataset(ctx context.Context, tableURL string, query Query) (*jsonstat.RawDataset, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dataset query for %s: %w", tableURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tableURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset request for %s: %w", tableURL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset from %s: %w", tableURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: tableURL, StatusCode: resp.StatusCode}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset body from %s: %w", tableURL, err)
	}

	return &jsonstat.RawDataset{Format: jsonstat.FormatJSONStat2, Body: payload}, nil
}

// BuildFullQuery builds a selection that covers every value of every
// variable the table declares, requesting json-stat2 output.
func BuildFullQuery(metadata *TableMetadata) Query {
	filters := make([]QueryFilter, 0, len(metadata.Variables))
	for _, v := range metadata.Variables {
		filters = append(filters, QueryFilter{
			Code: v.Code,
			Selection: Selection{
				Filter: "item",
				Values: v.Values,
			},
		})
	}
	return Query{
		Query:    filters,
		Response: ResponseSpec{Format: jsonstat.FormatJSONStat2},
	}
}
