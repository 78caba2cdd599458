// Package cachekeys builds the versioned cache keys used by the SWR cache.
// Every builder is a pure function of its arguments; absent optional values
// render as "-" so keys stay positional and parseable.
package cachekeys

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Placeholder stands in for an absent optional parameter.
const Placeholder = "-"

// Environment scopes keep mock and production data apart.
const (
	EnvMock = "mock"
	EnvProd = "prod"
)

// Scope is the environment and user part of every stored key.
type Scope struct {
	Env    string
	UserID string
}

// Prefix renders "env:<env>:user:<id|->:". ClearForUser deletes by this prefix.
// The id is query-escaped so no user's prefix is a prefix of another's.
func (s Scope) Prefix() string {
	env := s.Env
	if env != EnvMock {
		env = EnvProd
	}
	return fmt.Sprintf("env:%s:user:%s:", env, scopeUserID(s.UserID))
}

func scopeUserID(id string) string {
	switch {
	case strings.TrimSpace(id) == "":
		return Placeholder
	case id == Placeholder:
		return "%2D"
	}
	return url.QueryEscape(id)
}

// Scoped joins the scope prefix and a resource key.
func (s Scope) Scoped(resourceKey string) string {
	return s.Prefix() + resourceKey
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}

// BundlesQuery holds the bundle list parameters in key order.
type BundlesQuery struct {
	Page     int
	PageSize int
	Country  string
	Region   string
	Category string
	SortBy   string
}

func Bundles(q BundlesQuery, lang string) string {
	return fmt.Sprintf("bundles:v1:p%d-%d:c%s:r%s:b%s:s%s:l%s",
		q.Page, q.PageSize,
		orPlaceholder(q.Country), orPlaceholder(q.Region),
		orPlaceholder(q.Category), orPlaceholder(q.SortBy),
		Language(lang))
}

func Countries(lang string) string {
	return "countries:v1:l" + Language(lang)
}

func Regions(lang string) string {
	return "regions:v1:l" + Language(lang)
}

func Orders() string {
	return "orders:v1"
}

func Order(id string) string {
	return "order:v1:" + id
}

func OrderUsage(orderID string) string {
	return "order:usage:v1:" + orderID
}

func AgentAccount() string {
	return "agent:account:v1"
}

// BillsQuery holds the agent bill list parameters in key order.
type BillsQuery struct {
	Page      int
	PageSize  int
	Reference string
	StartDate string
	EndDate   string
}

func AgentBills(q BillsQuery) string {
	return fmt.Sprintf("agent:bills:v1:p%d-%d:ref=%s:s=%s:e=%s",
		q.Page, q.PageSize,
		orPlaceholder(q.Reference), orPlaceholder(q.StartDate), orPlaceholder(q.EndDate))
}

func BundleName(bundleID string) string {
	return "bundle:name:v1:" + bundleID
}

func BundleNetworks(bundleCode string) string {
	return "bundle:networks:v1:" + bundleCode
}

func BundleDetail(id string) string {
	return "bundle:detail:v1:" + id
}

func Languages() string {
	return "settings:languages:v1"
}

// Currencies is on v2 since the symbol field was added.
func Currencies() string {
	return "settings:currencies:v2"
}

// SearchSuggestions sorts include so that {a,b} and {b,a} share a key.
func SearchSuggestions(query string, include []string, limit int, lang string) string {
	inc := Placeholder
	if len(include) > 0 {
		sorted := append([]string(nil), include...)
		sort.Strings(sorted)
		inc = strings.Join(sorted, ",")
	}
	return fmt.Sprintf("search:suggestions:v1:l%s:q=%s:inc=%s:limit=%d",
		Language(lang), strings.TrimSpace(query), inc, limit)
}
