// Package gladly is the HTTP client for the Gladly helpdesk API: paginated
// conversation listing, per-conversation items, and customer profiles.
package gladly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sayamjn/enterpret-gladly/internal/httpx"
	"github.com/sayamjn/enterpret-gladly/internal/models"
)

// Config holds the Gladly connection settings.
type Config struct {
	BaseURL  string
	Username string
	APIToken string
}

// Client talks to the Gladly REST API with basic auth. All calls go through
// the shared 429 replay wrapper.
type Client struct {
	cfg  Config
	doer *httpx.RateLimitDoer
	log  *slog.Logger
}

// ConversationPage is one page of the conversation listing. HasMore signals
// the caller to request the next page.
type ConversationPage struct {
	Conversations []models.Conversation
	HasMore       bool
}

// NewClient creates a Gladly client. Redirects are not followed
// automatically; customer-merge redirects are handled explicitly in
// FetchCustomer.
func NewClient(cfg Config, log *slog.Logger) *Client {
	httpClient := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Client{
		cfg:  cfg,
		doer: httpx.NewRateLimitDoer(httpClient, log),
		log:  log,
	}
}

// SetSleep overrides the rate-limit sleep function, for tests.
func (c *Client) SetSleep(sleep func(time.Duration)) {
	c.doer.SetSleep(sleep)
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// ValidateConnection performs a single lightweight authenticated call.
// A non-2xx response or transport failure fails the pre-flight check.
func (c *Client) ValidateConnection(ctx context.Context) error {
	req, err := c.newRequest(ctx, "/api/v1/organization", nil)
	if err != nil {
		return err
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("gladly connection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gladly connection: unexpected status %s", resp.Status)
	}
	return nil
}

// FetchConversations returns one page of conversations created inside
// [start, end). HasMore is true while a page comes back full, i.e. with at
// least pageSize entries.
func (c *Client) FetchConversations(ctx context.Context, start, end time.Time, page, pageSize int) (ConversationPage, error) {
	query := url.Values{}
	query.Set("since", start.UTC().Format(time.RFC3339))
	query.Set("until", end.UTC().Format(time.RFC3339))
	query.Set("offset", strconv.Itoa(page*pageSize))
	query.Set("limit", strconv.Itoa(pageSize))

	req, err := c.newRequest(ctx, "/api/v1/conversations", query)
	if err != nil {
		return ConversationPage{}, err
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return ConversationPage{}, fmt.Errorf("list conversations: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ConversationPage{}, fmt.Errorf("list conversations: unexpected status %s", resp.Status)
	}

	var conversations []models.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conversations); err != nil {
		return ConversationPage{}, fmt.Errorf("decode conversations: %w", err)
	}

	return ConversationPage{
		Conversations: conversations,
		HasMore:       len(conversations) >= pageSize,
	}, nil
}

// FetchConversationItems returns the items of one conversation. Failures
// degrade to an empty list: a conversation whose items cannot be read is
// imported without content rather than aborting the run.
func (c *Client) FetchConversationItems(ctx context.Context, conversationID string) []models.ConversationItem {
	req, err := c.newRequest(ctx, "/api/v1/conversations/"+conversationID+"/items", nil)
	if err != nil {
		c.log.Warn("fetch items", "conversation", conversationID, "error", err)
		return nil
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		c.log.Warn("fetch items", "conversation", conversationID, "error", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("fetch items", "conversation", conversationID, "status", resp.Status)
		return nil
	}

	var items []models.ConversationItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		c.log.Warn("decode items", "conversation", conversationID, "error", err)
		return nil
	}
	return items
}

// FetchCustomer returns a customer profile, or nil when lookup fails for
// any reason. When Gladly signals a merged customer via redirect, the
// replacement id from the Location header is fetched once before giving up.
func (c *Client) FetchCustomer(ctx context.Context, customerID string) *models.Customer {
	customer, moved := c.fetchCustomerOnce(ctx, customerID)
	if moved != "" {
		c.log.Info("customer merged, following replacement",
			"customer", customerID, "replacement", moved)
		customer, _ = c.fetchCustomerOnce(ctx, moved)
	}
	return customer
}

// fetchCustomerOnce performs one lookup. It returns the profile, or the
// replacement id when the response was a redirect carrying a Location.
func (c *Client) fetchCustomerOnce(ctx context.Context, customerID string) (*models.Customer, string) {
	req, err := c.newRequest(ctx, "/api/v1/customers/"+customerID, nil)
	if err != nil {
		c.log.Warn("fetch customer", "customer", customerID, "error", err)
		return nil, ""
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		c.log.Warn("fetch customer", "customer", customerID, "error", err)
		return nil, ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" {
			return nil, lastPathSegment(loc)
		}
		return nil, ""
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("fetch customer", "customer", customerID, "status", resp.Status)
		return nil, ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("read customer", "customer", customerID, "error", err)
		return nil, ""
	}
	var customer models.Customer
	if err := json.Unmarshal(body, &customer); err != nil {
		c.log.Warn("decode customer", "customer", customerID, "error", err)
		return nil, ""
	}
	return &customer, ""
}

// lastPathSegment extracts the replacement customer id from a Location
// header value.
func lastPathSegment(location string) string {
	if u, err := url.Parse(location); err == nil {
		location = u.Path
	}
	location = strings.TrimRight(location, "/")
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}
