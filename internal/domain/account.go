// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAuthRejected indicates that the portal verified the credentials and
// rejected them, as opposed to the portal being unreachable.
var ErrAuthRejected = errors.New("portal rejected credentials")

// StatusError is returned when an endpoint answers with a non-200 status.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}

// Identity holds the account owner data taken from the portal's
// user-data response.
type Identity struct {
	SSOID         int64  `json:"sso_id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	PrimaryMSISDN string `json:"primary_msisdn"`
	CustomerType  string `json:"customer_type"`
}

// Profile is a billing/account grouping under one login. A profile may
// own multiple subscriber lines. Field names mirror the portal payload.
type Profile struct {
	ID                     int64  `json:"id"`
	Name                   string `json:"name"`
	OCN                    string `json:"ocn"`
	CustomerType           string `json:"customerType"`
	Status                 string `json:"status"`
	Admin                  bool   `json:"admin"`
	NextInvoicePaymentDate *int64 `json:"nextInvoicePaymentDate,omitempty"`
}

// Subscriber is one phone line/service instance under a Profile.
type Subscriber struct {
	SubscriberID     int64  `json:"subscriberId"`
	MSISDN           string `json:"msisdn"`
	Status           string `json:"status"`
	SubscriptionName string `json:"subscriptionName"`
	SubscriberType   string `json:"subscriberType"`
	TypeDisplayName  string `json:"subscriberTypeDisplayName"`
	ContactName      string `json:"contactName"`
	ProfileID        int64  `json:"profileId"`
	Prepay           bool   `json:"prepay"`
}

// SubscriptionSummary is one record of the subscriptions-summary
// endpoint, carrying the loyalty point balance for a profile.
type SubscriptionSummary struct {
	ProfileID         int64   `json:"profileId"`
	TotalPointsInShop float64 `json:"totalPointsInOnlineShop"`
	TotalValueInShop  float64 `json:"totalValueInOnlineShop"`
}

// InvoiceInfo is the balance block of a profile's invoice-info response.
// DueDate is milliseconds since epoch as sent by the portal.
type InvoiceInfo struct {
	TotalBalanceAmount       float64 `json:"totalBalanceAmount"`
	TotalBalanceServices     float64 `json:"totalBalanceServices"`
	TotalBalanceInstallments float64 `json:"totalBalanceInstallments"`
	DueDate                  *int64  `json:"dueDate"`
	HasInvoicesOnProfile     bool    `json:"hasInvoicesOnProfile"`
}

// UnpaidBill is the unpaid balance of one profile. A record exists only
// when the balance is strictly greater than zero.
type UnpaidBill struct {
	Amount       float64 `json:"amount"`
	Services     float64 `json:"services"`
	Installments float64 `json:"installments"`
	DueDate      string  `json:"due_date,omitempty"`
	HasInvoices  bool    `json:"has_invoices"`
	ProfileName  string  `json:"profile_name"`
}

// UnpaidBills aggregates unpaid balances across profiles, keyed by the
// string form of the profile id.
type UnpaidBills struct {
	TotalAmount float64               `json:"total_amount"`
	TotalCount  int                   `json:"total_count"`
	ByProfile   map[string]UnpaidBill `json:"by_profile"`
}

// Summary holds the derived account-wide totals.
type Summary struct {
	TotalProfiles      int     `json:"total_profiles"`
	TotalSubscribers   int     `json:"total_subscribers"`
	TotalLoyaltyPoints float64 `json:"total_loyalty_points"`
	TotalUnpaidAmount  float64 `json:"total_unpaid_amount"`
	TotalUnpaidCount   int     `json:"total_unpaid_count"`
}

// AccountSnapshot is the complete result of one poll cycle. It is
// rebuilt from scratch on every cycle and is comparable by value.
type AccountSnapshot struct {
	User                 *Identity             `json:"user"`
	Profiles             []Profile             `json:"profiles"`
	Subscribers          []Subscriber          `json:"subscribers"`
	SubscriptionsSummary []SubscriptionSummary `json:"subscriptions_summary"`
	UnpaidBills          UnpaidBills           `json:"unpaid_bills"`
	Summary              Summary               `json:"summary"`
}

// PortalAPI is the port for the authenticated portal session client.
type PortalAPI interface {
	// Authenticate performs the login flow. It returns (false, nil) when
	// the portal rejects the credentials and a non-nil error only for
	// transport-level failures.
	Authenticate(ctx context.Context) (bool, error)
	// EnsureAuthenticated authenticates lazily, at most once. It returns
	// ErrAuthRejected when the credentials are verified invalid.
	EnsureAuthenticated(ctx context.Context) error
	// Identity returns the identity derived during authentication, or
	// nil when not authenticated.
	Identity() *Identity

	Profiles(ctx context.Context) ([]Profile, error)
	Subscribers(ctx context.Context) ([]Subscriber, error)
	SubscriptionsSummary(ctx context.Context) ([]SubscriptionSummary, error)
	InvoiceInfo(ctx context.Context, profileID int64) (*InvoiceInfo, error)
	ProfileInvoices(ctx context.Context, profileID int64) (json.RawMessage, error)
	ProfileTransactions(ctx context.Context, profileID int64) (json.RawMessage, error)
}

// CycleRecorder is the port for persisting poll-cycle history.
type CycleRecorder interface {
	RecordCycle(ctx context.Context, cycleID string, snap *AccountSnapshot) error
}
