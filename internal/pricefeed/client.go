package pricefeed

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

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-align/internal/storage"
)

const barsPath = "/v1/bars"

// Options parameterise the HTTP bar client.
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches bars over HTTP from a provider exposing a JSON bars API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a bar client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "pricefeed").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchBars retrieves a ticker's bars within [from, to).
func (c *Client) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]storage.PriceBar, error) {
	if c.baseURL == "" {
		return nil, errors.New("pricefeed base url not configured")
	}
	if ticker == "" {
		return nil, errors.New("ticker required")
	}
	if !from.Before(to) {
		return nil, errors.New("from must be before to")
	}

	query := url.Values{}
	query.Set("ticker", ticker)
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))

	endpoint := c.baseURL + barsPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	var body barsResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode bars response: %w", err)
	}

	bars := make([]storage.PriceBar, 0, len(body.Bars))
	for _, raw := range body.Bars {
		bar, err := raw.toPriceBar(ticker)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	c.logger.Debug().Str("ticker", ticker).Int("bars", len(bars)).Msg("bars fetched")
	return bars, nil
}

type barsResponse struct {
	Bars []barPayload `json:"bars"`
}

type barPayload struct {
	Timestamp time.Time   `json:"ts"`
	Open      json.Number `json:"open"`
	High      json.Number `json:"high"`
	Low       json.Number `json:"low"`
	Close     json.Number `json:"close"`
	Volume    int64       `json:"volume"`
}

func (p barPayload) toPriceBar(ticker string) (storage.PriceBar, error) {
	bar := storage.PriceBar{Ticker: ticker, Timestamp: p.Timestamp, Volume: p.Volume}

	var err error
	if bar.Open, err = decimal.NewFromString(p.Open.String()); err != nil {
		return storage.PriceBar{}, fmt.Errorf("parse open: %w", err)
	}
	if bar.High, err = decimal.NewFromString(p.High.String()); err != nil {
		return storage.PriceBar{}, fmt.Errorf("parse high: %w", err)
	}
	if bar.Low, err = decimal.NewFromString(p.Low.String()); err != nil {
		return storage.PriceBar{}, fmt.Errorf("parse low: %w", err)
	}
	if bar.Close, err = decimal.NewFromString(p.Close.String()); err != nil {
		return storage.PriceBar{}, fmt.Errorf("parse close: %w", err)
	}
	return bar, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("pricefeed error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("pricefeed error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("pricefeed error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("pricefeed error (%d)", status)
}

var _ BarFetcher = (*Client)(nil)
