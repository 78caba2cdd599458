package domain

import "gitlab.com/simigo/client/datacore/pkg/flextime"

// Catalog and order DTOs. The cache stores them as opaque JSON, so only the
// fields the core itself reads are modelled strictly.

type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	FlagURL  string `json:"flagUrl,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Bundle struct {
	ID          string   `json:"id"`
	Code        string   `json:"code,omitempty"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode,omitempty"`
	RegionCode  string   `json:"regionCode,omitempty"`
	DataGB      float64  `json:"dataGb,omitempty"`
	ValidDays   int      `json:"validDays,omitempty"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Networks    []string `json:"networks,omitempty"`
}

type BundleNetwork struct {
	Operator string `json:"operator_name"`
	Country  string `json:"country_code,omitempty"`
	Type     string `json:"network_type,omitempty"`
}

type BundleNetworks struct {
	Networks []BundleNetwork `json:"networks"`
}

type Order struct {
	ID          string         `json:"id"`
	BundleID    string         `json:"bundleId"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	Status      string         `json:"status"`
	CreatedAt   flextime.Time  `json:"createdAt"`
	ActivatedAt *flextime.Time `json:"activatedAt,omitempty"`
}

type OrderUsage struct {
	OrderID     string         `json:"orderId"`
	UsedMB      float64        `json:"usedMb"`
	TotalMB     float64        `json:"totalMb"`
	RemainingMB float64        `json:"remainingMb"`
	ExpiresAt   *flextime.Time `json:"expiresAt,omitempty"`
}

type AgentAccount struct {
	AgentID  string  `json:"agent_id"`
	Name     string  `json:"username,omitempty"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency,omitempty"`
}

type AgentBill struct {
	Reference string        `json:"reference"`
	Amount    float64       `json:"amount"`
	Type      string        `json:"type,omitempty"`
	CreatedAt flextime.Time `json:"create_time"`
}

type AgentBills struct {
	Bills []AgentBill `json:"bills"`
	Total int         `json:"total"`
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

type SearchResult struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

type RefundResult struct {
	OrderID  string `json:"order_id"`
	Accepted bool   `json:"accepted"`
	State    string `json:"state"`
}
