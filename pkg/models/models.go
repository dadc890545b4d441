// Package models defines the domain models for the SEO agent workflows
package models

import (
	"time"
)

// Vertical identifies the regulated industry a client practices in
type Vertical string

const (
	VerticalDental       Vertical = "dental"
	VerticalMedical      Vertical = "medical"
	VerticalChiropractic Vertical = "chiropractic"
	VerticalLegal        Vertical = "legal"
	VerticalHomeServices Vertical = "home_services"
	VerticalOther        Vertical = "other"
)

// AccountHealth represents the billing/operational status of a client account
type AccountHealth string

const (
	AccountHealthActive  AccountHealth = "active"
	AccountHealthPaused  AccountHealth = "paused"
	AccountHealthPastDue AccountHealth = "past_due"
	AccountHealthChurned AccountHealth = "churned"
)

// Organization owns one or more client accounts
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Domain    string    `json:"domain" db:"domain"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Client is a service business whose content the agents produce.
// The practice profile fields seed keyword research and content briefs.
type Client struct {
	ID            string        `json:"id" db:"id"`
	OrgID         string        `json:"org_id" db:"org_id"`
	PracticeName  string        `json:"practice_name" db:"practice_name"`
	Vertical      Vertical      `json:"vertical" db:"vertical"`
	Services      []string      `json:"services" db:"services"`
	Location      string        `json:"location" db:"location"`
	WebsiteDomain string        `json:"website_domain" db:"website_domain"`
	Competitors   []string      `json:"competitors" db:"competitors"`
	AccountHealth AccountHealth `json:"account_health" db:"account_health"`

	// Search Console property and the credential used to read it
	SearchConsoleSite string `json:"search_console_site,omitempty" db:"search_console_site"`
	CredentialRef     string `json:"credential_ref,omitempty" db:"credential_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the account may run agent workflows.
func (c *Client) IsActive() bool {
	return c != nil && c.AccountHealth == AccountHealthActive
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
