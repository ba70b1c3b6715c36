// Package dexcom provides a client for the Dexcom Share glucose service
package dexcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/trend"
)

// Share endpoints
const (
	BaseURLOutsideUS = "https://shareous1.dexcom.com/ShareWebServices/Services"
	BaseURLUS        = "https://share2.dexcom.com/ShareWebServices/Services"

	// ApplicationID identifies the client to the share service
	ApplicationID = "d89443d2-327c-4a6f-89e5-496bbb0317db"
)

// Query shapes used by the app
const (
	latestMinutes   = 30
	latestCount     = 2
	historyMinutes  = 180
	historyMaxCount = 36
)

// RawReading is one sample as returned by the share service
type RawReading struct {
	Value int    `json:"Value"` // mg/dL
	WT    string `json:"WT"`    // "Date(<epoch ms>)"
	Trend string `json:"Trend,omitempty"`
}

// Latest is the newest reading with its derived trend
type Latest struct {
	Value    float64 // mmol/L
	Time     time.Time
	Rate     float64 // mmol/L per minute
	Trend    trend.Bucket
	TrendErr error // Set when a timestamp could not be parsed
}

// HasTrend reports whether a rate could be derived
func (l *Latest) HasTrend() bool {
	return l.TrendErr == nil && l.Trend != trend.Unknown
}

// Client handles communication with the share service
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// RegionURL returns the base URL for a configured region
func RegionURL(region string) string {
	if region == models.RegionUS {
		return BaseURLUS
	}
	return BaseURLOutsideUS
}

// NewClient creates a new share client
func NewClient(baseURL, username, password string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "dexcom"),
	}
}

type loginRequest struct {
	AccountName   string `json:"accountName"`
	Password      string `json:"password"`
	ApplicationID string `json:"applicationId"`
}

// buildRequest creates a JSON POST request
func (c *Client) buildRequest(ctx context.Context, endpoint string, params url.Values, body any) (*http.Request, error) {
	fullURL := c.baseURL + endpoint
	if params != nil {
		fullURL += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, payload)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("applicationId", ApplicationID)

	return req, nil
}

// doRequest executes an HTTP request and returns the response body
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Login exchanges the account credentials for a session id. The id is only
// valid for the caller's current fetch and is never stored.
func (c *Client) Login(ctx context.Context) (string, error) {
	if c.username == "" || c.password == "" {
		return "", &AuthError{Err: errors.New("missing credentials")}
	}

	req, err := c.buildRequest(ctx, "/General/LoginPublisherAccountByName", nil, loginRequest{
		AccountName:   c.username,
		Password:      c.password,
		ApplicationID: ApplicationID,
	})
	if err != nil {
		return "", &AuthError{Err: err}
	}

	body, err := c.doRequest(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	var session string
	if err := json.Unmarshal(body, &session); err != nil {
		session = strings.Trim(strings.TrimSpace(string(body)), `"`)
	}

	id, err := uuid.Parse(session)
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("parsing session id: %w", err)}
	}
	if id == uuid.Nil {
		return "", &AuthError{Err: errors.New("credentials rejected")}
	}

	return session, nil
}

// FetchLatest retrieves up to maxCount samples from the last minutes,
// newest first as sent by the service.
func (c *Client) FetchLatest(ctx context.Context, session string, minutes, maxCount int) ([]RawReading, error) {
	params := url.Values{}
	params.Set("sessionId", session)
	params.Set("minutes", strconv.Itoa(minutes))
	params.Set("maxCount", strconv.Itoa(maxCount))

	req, err := c.buildRequest(ctx, "/Publisher/ReadPublisherLatestGlucoseValues", params, nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	var raw []RawReading
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("parsing readings: %w", err)}
	}

	return raw, nil
}

// Latest returns the current value and, when two samples are available,
// the rate of change between them. A timestamp that cannot be parsed is
// reported in TrendErr without discarding the value.
func (c *Client) Latest(ctx context.Context) (*Latest, error) {
	session, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.FetchLatest(ctx, session, latestMinutes, latestCount)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &FetchError{Err: errors.New("no readings returned")}
	}

	latest := &Latest{
		Value: models.MgdlToMmol(raw[0].Value),
		Trend: trend.Unknown,
	}

	newest, err := ParseWT(raw[0].WT)
	if err != nil {
		latest.TrendErr = err
		return latest, nil
	}
	latest.Time = newest

	if len(raw) < 2 {
		return latest, nil
	}

	previous, err := ParseWT(raw[1].WT)
	if err != nil {
		latest.TrendErr = err
		return latest, nil
	}

	rate, bucket, err := trend.Estimate(raw[0].Value, newest, raw[1].Value, previous)
	if err != nil {
		latest.TrendErr = err
		return latest, nil
	}
	latest.Rate = rate
	latest.Trend = bucket

	return latest, nil
}

type stamped struct {
	raw RawReading
	at  time.Time
}

// History returns up to three hours of samples in ascending time order
func (c *Client) History(ctx context.Context) ([]models.Reading, error) {
	session, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.FetchLatest(ctx, session, historyMinutes, historyMaxCount)
	if err != nil {
		return nil, err
	}

	samples := make([]stamped, 0, len(raw))
	for _, r := range raw {
		at, err := ParseWT(r.WT)
		if err != nil {
			return nil, err
		}
		samples = append(samples, stamped{raw: r, at: at})
	}

	orderAscending(samples)

	readings := make([]models.Reading, 0, len(samples))
	for _, s := range samples {
		readings = append(readings, models.NewReading(models.MgdlToMmol(s.raw.Value), s.at, models.SourceRemote))
	}

	c.logger.Debug("history fetched", "count", len(readings))
	return readings, nil
}

// orderAscending stable-sorts newest first and then reverses. Samples that
// share a timestamp therefore come out in the reverse of their received order.
func orderAscending(samples []stamped) {
	slices.SortStableFunc(samples, func(a, b stamped) int {
		return b.at.Compare(a.at)
	})
	slices.Reverse(samples)
}

// TestConnection verifies the credentials by logging in
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Login(ctx)
	return err
}
