// Package provider implements the line-rental provider client. The wire
// protocol is a plain-text GET API: every call is
// `GET {base}?api_key=K&action=A&...` answered with a token line such as
// `ACCESS_NUMBER:999999:13476711222` or `STATUS_WAIT_CODE`.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/smsline/smsline/internal/pkg/errors"
	"github.com/smsline/smsline/internal/ratelimit"
)

const (
	actionBalance   = "getBalance"
	actionGetNumber = "getNumber"
	actionGetStatus = "getStatus"
	actionSetStatus = "setStatus"
	actionKeep      = "keep"

	// setStatus values defined by the provider.
	statusDone   = "6"
	statusCancel = "8"

	transientRetries = 3
	retryBackoff     = 500 * time.Millisecond
)

// codeRegex matches the 4-8 digit verification codes the provider embeds
// in the full-message header.
var codeRegex = regexp.MustCompile(`\b\d{4,8}\b`)

type Config struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
}

type httpClient struct {
	apiKey  string
	baseURL string
	gate    *ratelimit.Gate
	client  *http.Client
}

// New builds the HTTP provider client. All requests pass through gate
// before touching the network.
func New(cfg Config, gate *ratelimit.Gate) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base url is required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		gate:    gate,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type reply struct {
	token    string // status token before the first colon
	data     string // remainder after the first colon, may be empty
	fullText string // X-Text header content when text=1 was requested
}

func (c *httpClient) request(ctx context.Context, action string, params map[string]string) (reply, error) {
	values := url.Values{}
	values.Set("api_key", c.apiKey)
	values.Set("action", action)
	for k, v := range params {
		values.Set(k, v)
	}
	endpoint := c.baseURL + "?" + values.Encode()

	var lastErr error
	for attempt := 0; attempt < transientRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return reply{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := c.gate.Acquire(ctx); err != nil {
			return reply{}, err
		}
		res, err := c.doOnce(ctx, endpoint)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("provider request failed, retrying",
			zap.String("action", action),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return reply{}, fmt.Errorf("provider request %s: %w", action, lastErr)
}

func (c *httpClient) doOnce(ctx context.Context, endpoint string) (reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return reply{}, err
	}
	req.Header.Set("Accept", "text/plain, */*")
	resp, err := c.client.Do(req)
	if err != nil {
		return reply{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return reply{}, fmt.Errorf("provider status %s", resp.Status)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return reply{}, fmt.Errorf("provider status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return reply{}, err
	}
	return parseReply(strings.TrimSpace(string(body)), resp.Header.Get("X-Text")), nil
}

func parseReply(text, fullText string) reply {
	res := reply{fullText: fullText}
	if idx := strings.IndexByte(text, ':'); idx >= 0 {
		res.token = text[:idx]
		res.data = text[idx+1:]
		return res
	}
	res.token = text
	return res
}

func (c *httpClient) CheckBalance(ctx context.Context) (float64, error) {
	res, err := c.request(ctx, actionBalance, nil)
	if err != nil {
		return 0, err
	}
	switch res.token {
	case "ACCESS_BALANCE":
		amount, err := strconv.ParseFloat(res.data, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid balance %q: %w", res.data, err)
		}
		return amount, nil
	case "BAD_KEY":
		return 0, appErr.ErrBadKey
	default:
		return 0, fmt.Errorf("unexpected balance response %q", res.token)
	}
}

func (c *httpClient) Rent(ctx context.Context, req RentRequest) (Rental, error) {
	params := map[string]string{
		"service":   req.ServiceCode,
		"max_price": strconv.FormatFloat(req.MaxPrice, 'f', 2, 64),
	}
	if req.Country != 0 {
		params["country"] = strconv.Itoa(req.Country)
	}
	res, err := c.request(ctx, actionGetNumber, params)
	if err != nil {
		return Rental{}, err
	}
	switch res.token {
	case "ACCESS_NUMBER":
		parts := strings.SplitN(res.data, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Rental{}, fmt.Errorf("malformed rental response %q", res.data)
		}
		return Rental{ID: parts[0], PhoneNumber: parts[1]}, nil
	case "MAX_PRICE_EXCEEDED":
		return Rental{}, appErr.ErrPriceExceeded
	case "NO_NUMBERS":
		return Rental{}, appErr.ErrNoNumbers
	case "NO_MONEY":
		return Rental{}, appErr.ErrInsufficientBalance
	case "TOO_MANY_ACTIVE_RENTALS":
		return Rental{}, appErr.ErrTooManyRentals
	case "BAD_KEY":
		return Rental{}, appErr.ErrBadKey
	default:
		return Rental{}, fmt.Errorf("unexpected rental response %q", res.token)
	}
}

// Poll maps the provider's status tokens to a typed outcome. Unknown
// tokens downgrade to Waiting so a new provider token never kills a
// verification; a token that is itself a bare 4-8 digit number is taken
// as the code.
func (c *httpClient) Poll(ctx context.Context, id string) (Outcome, error) {
	res, err := c.request(ctx, actionGetStatus, map[string]string{"id": id, "text": "1"})
	if err != nil {
		return Outcome{}, err
	}
	switch res.token {
	case "STATUS_OK":
		if code := extractCode(res.data); code != "" {
			return Outcome{Kind: OutcomeCode, Code: code, FullText: res.fullText}, nil
		}
		return Outcome{}, fmt.Errorf("status ok without code: %q", res.data)
	case "STATUS_WAIT_CODE":
		return Outcome{Kind: OutcomeWaiting}, nil
	case "STATUS_CANCEL":
		return Outcome{Kind: OutcomeCancelled}, nil
	case "NO_ACTIVATION":
		// Wrong id or an already-released rental: the line is gone.
		return Outcome{Kind: OutcomeExpired}, nil
	}
	if code := extractCode(res.token); code != "" {
		return Outcome{Kind: OutcomeCode, Code: code, FullText: res.fullText}, nil
	}
	if code := extractCode(res.data); code != "" {
		return Outcome{Kind: OutcomeCode, Code: code, FullText: res.fullText}, nil
	}
	if code := codeRegex.FindString(res.fullText); code != "" {
		return Outcome{Kind: OutcomeCode, Code: code, FullText: res.fullText}, nil
	}
	logutil.GetLogger(ctx).Warn("unknown provider status token, treating as waiting",
		zap.String("id", id),
		zap.String("token", res.token),
	)
	return Outcome{Kind: OutcomeWaiting}, nil
}

// extractCode pulls a leading numeric code out of a token such as
// "482911" or "482911:rest".
func extractCode(s string) string {
	if s == "" {
		return ""
	}
	head := s
	if idx := strings.IndexByte(head, ':'); idx >= 0 {
		head = head[:idx]
	}
	head = strings.TrimSpace(head)
	if len(head) < 4 || len(head) > 8 {
		return ""
	}
	for _, r := range head {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return head
}

func (c *httpClient) Cancel(ctx context.Context, id string) error {
	res, err := c.request(ctx, actionSetStatus, map[string]string{"id": id, "status": statusCancel})
	if err != nil {
		return err
	}
	switch res.token {
	case "ACCESS_CANCEL":
		return nil
	case "ACCESS_READY":
		// Already processed on the provider side; nothing left to refund.
		return appErr.ErrConflict
	default:
		return fmt.Errorf("unexpected cancel response %q", res.token)
	}
}

func (c *httpClient) MarkDone(ctx context.Context, id string) error {
	res, err := c.request(ctx, actionSetStatus, map[string]string{"id": id, "status": statusDone})
	if err != nil {
		return err
	}
	if res.token != "ACCESS_ACTIVATION" {
		return fmt.Errorf("unexpected done response %q", res.token)
	}
	return nil
}

func (c *httpClient) Keep(ctx context.Context, id string) error {
	res, err := c.request(ctx, actionKeep, map[string]string{"id": id})
	if err != nil {
		return err
	}
	if res.token != "OK" {
		return fmt.Errorf("unexpected keep response %q", res.token)
	}
	return nil
}
