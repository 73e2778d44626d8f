package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Core domain models used internally and serialized into the stored raw
// snapshot. Field names in JSON follow the dashboard's historical payloads.

// Source service names, also used as credential keys.
const (
	ServiceDirectory = "directory"
	ServiceOrders    = "orders"
	ServiceMarketing = "marketing"
)

// Services lists every source in refresh order.
var Services = []string{ServiceDirectory, ServiceOrders, ServiceMarketing}

// SourceResult is the envelope every source call returns.
type SourceResult[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

func Succeeded[T any](msg string, data T) SourceResult[T] {
	return SourceResult[T]{Success: true, Message: msg, Data: &data}
}

func Failed[T any](msg string) SourceResult[T] {
	return SourceResult[T]{Success: false, Message: msg}
}

type DirectorySchool struct {
	ID     int64  `json:"school_id"`
	Name   string `json:"school_name"`
	Domain string `json:"school_domain,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
}

// StaffRecord is one directory staff member. Title is the job title; the
// honorific recovered by name parsing lives in NameTitle.
type StaffRecord struct {
	ID         int64  `json:"staff_id"`
	FullName   string `json:"full_name,omitempty"`
	NameTitle  string `json:"name_title,omitempty"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Suffix     string `json:"suffix,omitempty"`
	Title      string `json:"title,omitempty"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
}

type DirectoryData struct {
	School     *DirectorySchool `json:"school"`
	Staff      []StaffRecord    `json:"staff"`
	TotalStaff int              `json:"total_staff"`
	MatchedBy  string           `json:"matched_by,omitempty"`
}

type Customer struct {
	ContactID string `json:"contactId"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type OrderRecord struct {
	OrderNumber  string          `json:"orderNumber"`
	PlacedOn     string          `json:"placedOn,omitempty"`
	CustomerName string          `json:"customerName,omitempty"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	OrderStatus  string          `json:"orderStatus,omitempty"`
}

type OrdersData struct {
	Customers   []Customer      `json:"customers"`
	Orders      []OrderRecord   `json:"orders"`
	TotalOrders int             `json:"total_orders"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

type Profile struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Created   string `json:"created,omitempty"`
}

type MetricSet struct {
	Sent           int     `json:"sent"`
	OpenRate       float64 `json:"open_rate"`
	ClickRate      float64 `json:"click_rate"`
	ConversionRate float64 `json:"conversion_rate"`
}

type MarketingData struct {
	Profiles      []Profile `json:"profiles"`
	TotalProfiles int       `json:"total_profiles"`
	Metrics       MetricSet `json:"metrics"`
	EmailCount    int       `json:"email_count"`
	OpenRate      float64   `json:"open_rate"`
	ClickRate     float64   `json:"click_rate"`
	OrderRate     float64   `json:"order_rate"`
}

// RawData is the per-source result map stored with a snapshot. Sources that
// were not available on the last refresh are absent.
type RawData struct {
	Directory *SourceResult[DirectoryData] `json:"directory,omitempty"`
	Orders    *SourceResult[OrdersData]    `json:"orders,omitempty"`
	Marketing *SourceResult[MarketingData] `json:"marketing,omitempty"`
}

// SchoolSnapshot is the persisted aggregate for one domain.
type SchoolSnapshot struct {
	ID                int64           `json:"id"`
	Domain            string          `json:"domain"`
	SchoolName        string          `json:"school_name"`
	DirectorySchoolID *int64          `json:"directory_school_id"`
	StaffCount        int             `json:"staff_count"`
	OrderCount        int             `json:"order_count"`
	OrderTotal        decimal.Decimal `json:"order_total"`
	EmailCount        int             `json:"email_count"`
	OpenRate          float64         `json:"open_rate"`
	ClickRate         float64         `json:"click_rate"`
	OrderRate         float64         `json:"order_rate"`
	RawData           RawData         `json:"raw_data"`
	LastUpdated       time.Time       `json:"last_updated"`
	CreatedAt         time.Time       `json:"created_at"`
}

// SummaryUpdate carries the summary fields staged by one refresh. A nil
// field leaves the stored value untouched.
type SummaryUpdate struct {
	StaffCount        *int
	DirectorySchoolID *int64
	OrderCount        *int
	OrderTotal        *decimal.Decimal
	EmailCount        *int
	OpenRate          *float64
	ClickRate         *float64
	OrderRate         *float64
}

// Apply copies the non-nil fields of u onto s.
func (u SummaryUpdate) Apply(s *SchoolSnapshot) {
	if u.StaffCount != nil {
		s.StaffCount = *u.StaffCount
	}
	if u.DirectorySchoolID != nil {
		id := *u.DirectorySchoolID
		s.DirectorySchoolID = &id
	}
	if u.OrderCount != nil {
		s.OrderCount = *u.OrderCount
	}
	if u.OrderTotal != nil {
		s.OrderTotal = *u.OrderTotal
	}
	if u.EmailCount != nil {
		s.EmailCount = *u.EmailCount
	}
	if u.OpenRate != nil {
		s.OpenRate = *u.OpenRate
	}
	if u.ClickRate != nil {
		s.ClickRate = *u.ClickRate
	}
	if u.OrderRate != nil {
		s.OrderRate = *u.OrderRate
	}
}

// Credentials are the stored secrets for one upstream service.
type Credentials struct {
	Service        string            `json:"service"`
	APIKey         string            `json:"api_key,omitempty"`
	APISecret      string            `json:"api_secret,omitempty"`
	AccessToken    string            `json:"access_token,omitempty"`
	RefreshToken   string            `json:"refresh_token,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	AdditionalData map[string]string `json:"additional_data,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Extra returns an additional_data value or def when unset.
func (c Credentials) Extra(key, def string) string {
	if v := c.AdditionalData[key]; v != "" {
		return v
	}
	return def
}

// Expired reports whether ExpiresAt is set and before now.
func (c Credentials) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Masked returns a copy safe for display.
func (c Credentials) Masked() Credentials {
	out := c
	out.APIKey = mask(c.APIKey)
	out.APISecret = mask(c.APISecret)
	out.AccessToken = mask(c.AccessToken)
	out.RefreshToken = mask(c.RefreshToken)
	if len(c.AdditionalData) > 0 {
		out.AdditionalData = make(map[string]string, len(c.AdditionalData))
		for k, v := range c.AdditionalData {
			if k == "db_pass" {
				v = mask(v)
			}
			out.AdditionalData[k] = v
		}
	}
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// RefreshOutcome is the per-school result of a bulk refresh.
type RefreshOutcome struct {
	Domain  string `json:"domain"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
