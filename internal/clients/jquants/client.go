// Package jquants provides a client for the J-Quants API
package jquants

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/tkasuya/jqfeed/internal/common"
	"github.com/tkasuya/jqfeed/internal/interfaces"
	"github.com/tkasuya/jqfeed/internal/models"
)

const (
	DefaultBaseURL   = "https://api.jquants.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	requestDateFormat  = "20060102"
	calendarDateFormat = "2006-01-02"
)

// Client implements the JQuantsClient interface
type Client struct {
	baseURL    string
	idToken    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a J-Quants client and exchanges the refresh token for an
// id token. The id token is held for the client's lifetime; a rejected
// refresh is fatal for the run.
func NewClient(ctx context.Context, refreshToken string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.authenticate(ctx, refreshToken); err != nil {
		return nil, err
	}

	return c, nil
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("J-Quants API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// authenticate exchanges the refresh token for an id token.
func (c *Client) authenticate(ctx context.Context, refreshToken string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("refreshtoken", refreshToken)
	reqURL := fmt.Sprintf("%s/v1/token/auth_refresh?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   "/v1/token/auth_refresh",
		}
	}

	var tokenResp struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.IDToken == "" {
		return fmt.Errorf("token refresh returned empty idToken")
	}

	c.idToken = tokenResp.IDToken
	c.logTokenExpiry()

	return nil
}

// logTokenExpiry reports the id token's expiry claim. The token is a JWT; the
// claim is read unverified because only the API can validate the signature.
func (c *Client) logTokenExpiry() {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.idToken, claims); err != nil {
		c.logger.Debug().Err(err).Msg("id token is not a parseable JWT")
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if time.Now().After(exp.Time) {
		c.logger.Warn().Time("expires", exp.Time).Msg("id token already expired")
		return
	}
	c.logger.Debug().Time("expires", exp.Time).Msg("id token acquired")
}

// get performs a rate-limited, authorized GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.idToken)

	c.logger.Debug().Str("url", c.baseURL+path).Msg("J-Quants API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// calendarEntry represents one day of the trading calendar response
type calendarEntry struct {
	Date            string `json:"Date"`
	HolidayDivision string `json:"HolidayDivision"`
}

// TradingCalendar returns the ordered trading days within [from, to].
// A day is a trading day iff HolidayDivision == "1".
func (c *Client) TradingCalendar(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	params := url.Values{}
	params.Set("from", from.Format(requestDateFormat))
	params.Set("to", to.Format(requestDateFormat))

	var resp struct {
		TradingCalendar []calendarEntry `json:"trading_calendar"`
	}
	if err := c.get(ctx, "/v1/markets/trading_calendar", params, &resp); err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, len(resp.TradingCalendar))
	for _, entry := range resp.TradingCalendar {
		if entry.HolidayDivision != "1" {
			continue
		}
		day, err := time.Parse(calendarDateFormat, entry.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse calendar date %q: %w", entry.Date, err)
		}
		days = append(days, day)
	}

	return days, nil
}

// quotePage represents one page of the daily quotes response
type quotePage struct {
	DailyQuotes   []json.RawMessage `json:"daily_quotes"`
	PaginationKey string            `json:"pagination_key"`
}

// FetchDailyQuotes drains every page of daily quotes for one date, routing
// each page to the sink before requesting the next. An empty first page is a
// complete result.
func (c *Client) FetchDailyQuotes(ctx context.Context, date time.Time, sink interfaces.RecordSink) (int, error) {
	written := 0
	paginationKey := ""

	for {
		params := url.Values{}
		params.Set("date", date.Format(requestDateFormat))
		if paginationKey != "" {
			params.Set("pagination_key", paginationKey)
		}

		var page quotePage
		if err := c.get(ctx, "/v1/prices/daily_quotes", params, &page); err != nil {
			return written, err
		}

		n, err := c.writePage(ctx, models.DailyQuotes, page.DailyQuotes, sink)
		written += n
		if err != nil {
			return written, err
		}

		paginationKey = page.PaginationKey
		if paginationKey == "" {
			break
		}
	}

	return written, nil
}

// statementPage represents one page of the financial statements response
type statementPage struct {
	Statements    []json.RawMessage `json:"statements"`
	PaginationKey string            `json:"pagination_key"`
}

// FetchStatements drains every page of financial statements for one date.
func (c *Client) FetchStatements(ctx context.Context, date time.Time, sink interfaces.RecordSink) (int, error) {
	written := 0
	paginationKey := ""

	for {
		params := url.Values{}
		params.Set("date", date.Format(requestDateFormat))
		if paginationKey != "" {
			params.Set("pagination_key", paginationKey)
		}

		var page statementPage
		if err := c.get(ctx, "/v1/fins/statements", params, &page); err != nil {
			return written, err
		}

		n, err := c.writePage(ctx, models.Financials, page.Statements, sink)
		written += n
		if err != nil {
			return written, err
		}

		paginationKey = page.PaginationKey
		if paginationKey == "" {
			break
		}
	}

	return written, nil
}

// writePage parses one page of raw records and hands them to the sink.
func (c *Client) writePage(ctx context.Context, d *models.Dataset, raws []json.RawMessage, sink interfaces.RecordSink) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}

	records := make([]*models.Record, 0, len(raws))
	for _, raw := range raws {
		record, err := models.ParseRecord(d, raw)
		if err != nil {
			return 0, err
		}
		records = append(records, record)
	}

	if err := sink.WritePage(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to write %s page: %w", d.Name, err)
	}

	return len(records), nil
}

// Ensure Client implements JQuantsClient
var _ interfaces.JQuantsClient = (*Client)(nil)
