// Package portal implements the authenticated HTTP client for the
// Orange Romania account portal.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"orangemon/internal/domain"
)

const (
	// DefaultBaseURL is the production portal host.
	DefaultBaseURL = "https://www.orange.ro"

	myAccountPath = "/myaccount/"
	apiBasePath   = "/myaccount/api/v4"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Client holds the portal session state. The cookie jar lives on the
// underlying http.Client and is replayed by the transport; the client
// never inspects cookie contents.
type Client struct {
	http     *http.Client
	log      *slog.Logger
	baseURL  string
	username string
	password string

	mu            sync.Mutex
	authenticated bool
	identity      *domain.Identity
}

var _ domain.PortalAPI = (*Client)(nil)

// New creates a portal client for the given credentials. When
// httpClient is nil a default client with a fresh cookie jar is used;
// a provided client without a jar gets one attached, since the login
// flow depends on session cookies being replayed.
func New(httpClient *http.Client, baseURL, username, password string, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		httpClient.Jar = jar
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		http:     httpClient,
		log:      log,
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
	}
}

// Authenticate runs the portal's redirect-based login flow:
//
//  1. GET the account landing page; the final URL after redirects is
//     the dynamic login endpoint (it carries a server-issued "ak"
//     parameter that is treated as opaque).
//  2. POST the credentials as a URL-encoded form to that URL.
//  3. Verify via the user-data endpoint, because the login POST lands
//     on the OAuth return page with status 200 even on failure.
//
// It returns (false, nil) when the portal rejects the credentials or
// answers with a non-200 status, and a non-nil error only when the
// portal could not be reached or the verification call failed.
func (c *Client) Authenticate(ctx context.Context) (bool, error) {
	c.setSession(false, nil)

	c.log.Debug("starting portal authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+myAccountPath, nil)
	if err != nil {
		return false, err
	}
	setBrowserHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("load login page: %w", err)
	}
	drainAndClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.log.Error("failed to load login page", "status", resp.StatusCode)
		return false, nil
	}

	// The redirect chain resolved the dynamic login endpoint.
	loginURL := resp.Request.URL.String()
	c.log.Debug("resolved login url", "url", loginURL)

	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", loginURL)

	resp, err = c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("login post: %w", err)
	}
	drainAndClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.log.Error("login failed", "status", resp.StatusCode)
		return false, nil
	}

	ud, err := c.userData(ctx)
	if err != nil {
		return false, fmt.Errorf("verify login: %w", err)
	}
	if !ud.Data.IsUserLogged {
		c.log.Error("login response accepted but user is not logged in")
		return false, nil
	}

	identity := ud.Data.CurrentUser.toIdentity()
	c.setSession(true, identity)
	c.log.Info("authenticated", "username", identity.Username, "sso_id", identity.SSOID)
	return true, nil
}

// EnsureAuthenticated authenticates if the session is not established
// yet. At most one attempt is made; domain.ErrAuthRejected is returned
// when the portal turns the credentials down.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	authenticated := c.authenticated
	c.mu.Unlock()
	if authenticated {
		return nil
	}

	ok, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAuthRejected
	}
	return nil
}

// Identity returns the identity captured at login, or nil while the
// session is not authenticated.
func (c *Client) Identity() *domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authenticated {
		return nil
	}
	id := *c.identity
	return &id
}

// Profiles fetches the billing profiles visible to the account.
func (c *Client) Profiles(ctx context.Context) ([]domain.Profile, error) {
	var out struct {
		Profiles []domain.Profile `json:"profiles"`
	}
	if err := c.fetchJSON(ctx, "profiles", c.apiURL("/profiles"), &out); err != nil {
		return nil, err
	}
	return out.Profiles, nil
}

// Subscribers fetches every subscriber line under the account.
func (c *Client) Subscribers(ctx context.Context) ([]domain.Subscriber, error) {
	var out []domain.Subscriber
	if err := c.fetchJSON(ctx, "subscribers", c.apiURL("/subscribers"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubscriptionsSummary fetches the per-profile subscription summaries,
// including loyalty point balances.
func (c *Client) SubscriptionsSummary(ctx context.Context) ([]domain.SubscriptionSummary, error) {
	var out struct {
		Data []domain.SubscriptionSummary `json:"data"`
	}
	if err := c.fetchJSON(ctx, "subscriptionsSummary", c.apiURL("/packages-and-options/subscriptionsSummary"), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// InvoiceInfo fetches the balance block for one profile. It returns
// (nil, nil) when the portal sends no invoice data, which is the case
// for prepaid profiles.
func (c *Client) InvoiceInfo(ctx context.Context, profileID int64) (*domain.InvoiceInfo, error) {
	var out struct {
		Data *domain.InvoiceInfo `json:"data"`
	}
	url := c.apiURL(fmt.Sprintf("/profile/%d/invoiceInfo", profileID))
	if err := c.fetchJSON(ctx, "invoiceInfo", url, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ProfileInvoices returns the raw invoice-info payload for one profile.
func (c *Client) ProfileInvoices(ctx context.Context, profileID int64) (json.RawMessage, error) {
	var out json.RawMessage
	url := c.apiURL(fmt.Sprintf("/profile/%d/invoiceInfo", profileID))
	if err := c.fetchJSON(ctx, "invoiceInfo", url, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProfileTransactions returns the raw transaction history for one profile.
func (c *Client) ProfileTransactions(ctx context.Context, profileID int64) (json.RawMessage, error) {
	var out json.RawMessage
	url := c.apiURL(fmt.Sprintf("/profiles/%d/transactions", profileID))
	if err := c.fetchJSON(ctx, "transactions", url, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchJSON performs an authenticated GET against a JSON endpoint,
// establishing the session first when needed.
func (c *Client) fetchJSON(ctx context.Context, endpoint, url string, dst any) error {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return err
	}
	return c.getJSON(ctx, endpoint, url, dst)
}

// getJSON performs a plain GET with the portal's fixed API header set.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", c.baseURL+myAccountPath)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &domain.StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) userData(ctx context.Context) (*userDataResponse, error) {
	var out userDataResponse
	if err := c.getJSON(ctx, "userData", c.apiURL("/userData"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) apiURL(path string) string {
	return c.baseURL + apiBasePath + path
}

func (c *Client) setSession(authenticated bool, identity *domain.Identity) {
	c.mu.Lock()
	c.authenticated = authenticated
	c.identity = identity
	c.mu.Unlock()
}

type userDataResponse struct {
	Data struct {
		IsUserLogged bool        `json:"isUserLogged"`
		CurrentUser  currentUser `json:"currentUser"`
	} `json:"data"`
}

type currentUser struct {
	SSOID         int64  `json:"ssoId"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	PrimaryMSISDN string `json:"primaryMsisdn"`
	CustomerType  string `json:"customerType"`
}

func (u currentUser) toIdentity() *domain.Identity {
	return &domain.Identity{
		SSOID:         u.SSOID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		PrimaryMSISDN: u.PrimaryMSISDN,
		CustomerType:  u.CustomerType,
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ro-RO,ro;q=0.9,en;q=0.8")
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
