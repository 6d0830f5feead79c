package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"venue-pulse/internal/breaker"
	"venue-pulse/internal/forecast/application"
)

const maxPages = 50

var errTooManyPages = errors.New("feeds: too many pages")

// Client reads normalized POS and roster feeds from the integration gateway.
// POS and roster calls go through separate breakers so one vendor outage does
// not fail fast the other.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	pos     *breaker.Breaker
	roster  *breaker.Breaker
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithBreakers overrides the POS and roster breakers.
func WithBreakers(pos, roster *breaker.Breaker) Option {
	return func(c *Client) {
		if pos != nil {
			c.pos = pos
		}
		if roster != nil {
			c.roster = roster
		}
	}
}

// NewClient constructs a gateway client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("feeds: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		pos:     breaker.New("pos", breaker.Config{}),
		roster:  breaker.New("roster", breaker.Config{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type paymentDTO struct {
	CreatedAt   time.Time `json:"createdAt"`
	AmountCents int64     `json:"amountCents"`
	Status      string    `json:"status"`
}

type paymentsPage struct {
	Payments   []paymentDTO `json:"payments"`
	NextCursor string       `json:"nextCursor"`
}

type openOrdersPage struct {
	Orders     []application.OpenOrder `json:"orders"`
	NextCursor string                  `json:"nextCursor"`
}

type timesheetsPage struct {
	Timesheets []application.Timesheet `json:"timesheets"`
	NextCursor string                  `json:"nextCursor"`
}

type employeeDTO struct {
	ID              string `json:"id"`
	HourlyRateCents int64  `json:"hourlyRateCents"`
}

type employeesPage struct {
	Employees  []employeeDTO `json:"employees"`
	NextCursor string        `json:"nextCursor"`
}

// ListPayments returns completed payments created in [from, to).
func (c *Client) ListPayments(ctx context.Context, locationID string, from, to time.Time) ([]application.Payment, error) {
	query := rangeQuery(from, to)
	var result []application.Payment
	err := c.paginate(ctx, func(cursor string) (string, error) {
		var page paymentsPage
		if err := c.doJSON(ctx, c.pos, withCursor(locationPath(locationID, "payments"), query, cursor), &page); err != nil {
			return "", err
		}
		for _, p := range page.Payments {
			if p.Status != "" && !strings.EqualFold(p.Status, "completed") {
				continue
			}
			result = append(result, application.Payment{CreatedAt: p.CreatedAt, AmountCents: p.AmountCents})
		}
		return page.NextCursor, nil
	})
	return result, err
}

// ListOpenOrders returns orders that are still open.
func (c *Client) ListOpenOrders(ctx context.Context, locationID string) ([]application.OpenOrder, error) {
	var result []application.OpenOrder
	err := c.paginate(ctx, func(cursor string) (string, error) {
		var page openOrdersPage
		if err := c.doJSON(ctx, c.pos, withCursor(locationPath(locationID, "open-orders"), nil, cursor), &page); err != nil {
			return "", err
		}
		result = append(result, page.Orders...)
		return page.NextCursor, nil
	})
	return result, err
}

// ListTimesheets returns timesheets overlapping [from, to).
func (c *Client) ListTimesheets(ctx context.Context, locationID string, from, to time.Time) ([]application.Timesheet, error) {
	query := rangeQuery(from, to)
	var result []application.Timesheet
	err := c.paginate(ctx, func(cursor string) (string, error) {
		var page timesheetsPage
		if err := c.doJSON(ctx, c.roster, withCursor(locationPath(locationID, "timesheets"), query, cursor), &page); err != nil {
			return "", err
		}
		result = append(result, page.Timesheets...)
		return page.NextCursor, nil
	})
	return result, err
}

// EmployeeRates returns hourly rates keyed by employee id.
func (c *Client) EmployeeRates(ctx context.Context, locationID string) (map[string]int64, error) {
	rates := make(map[string]int64)
	err := c.paginate(ctx, func(cursor string) (string, error) {
		var page employeesPage
		if err := c.doJSON(ctx, c.roster, withCursor(locationPath(locationID, "employees"), nil, cursor), &page); err != nil {
			return "", err
		}
		for _, e := range page.Employees {
			if e.ID != "" && e.HourlyRateCents > 0 {
				rates[e.ID] = e.HourlyRateCents
			}
		}
		return page.NextCursor, nil
	})
	return rates, err
}

// paginate follows nextCursor until the gateway returns an empty one.
func (c *Client) paginate(ctx context.Context, fetch func(cursor string) (string, error)) error {
	cursor := ""
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := fetch(cursor)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
	return errTooManyPages
}

func (c *Client) doJSON(ctx context.Context, b *breaker.Breaker, path string, out any) error {
	return b.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("feeds: http %d for %s", resp.StatusCode, path)
		}
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

func locationPath(locationID, resource string) string {
	return "/v1/locations/" + url.PathEscape(locationID) + "/" + resource
}

func rangeQuery(from, to time.Time) url.Values {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))
	return query
}

func withCursor(path string, query url.Values, cursor string) string {
	values := url.Values{}
	for key, list := range query {
		values[key] = append([]string(nil), list...)
	}
	if cursor != "" {
		values.Set("cursor", cursor)
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}
