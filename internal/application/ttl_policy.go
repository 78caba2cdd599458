package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/httpclient"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

// Resource names a family of cached data sharing one freshness window.
type Resource string

const (
	ResourceCatalog           Resource = "catalog"
	ResourceOrders            Resource = "orders"
	ResourceOrderDetail       Resource = "order_detail"
	ResourceOrderUsage        Resource = "order_usage"
	ResourceAgentAccount      Resource = "agent_account"
	ResourceAgentBills        Resource = "agent_bills"
	ResourceBundleNetworks    Resource = "bundle_networks"
	ResourceSettings          Resource = "settings"
	ResourceSearchSuggestions Resource = "search_suggestions"
)

// remoteConfig is the body of GET /config. TTLs are seconds.
type remoteConfig struct {
	CatalogCacheTTL           *float64 `json:"catalogCacheTTL"`
	OrdersCacheTTL            *float64 `json:"ordersCacheTTL"`
	OrderDetailCacheTTL       *float64 `json:"orderDetailCacheTTL"`
	AgentAccountCacheTTL      *float64 `json:"agentAccountCacheTTL"`
	AgentBillsCacheTTL        *float64 `json:"agentBillsCacheTTL"`
	BundleNetworksCacheTTL    *float64 `json:"bundleNetworksCacheTTL"`
	SettingsCacheTTL          *float64 `json:"settingsCacheTTL"`
	SearchSuggestionsCacheTTL *float64 `json:"searchSuggestionsCacheTTL"`
	OrderUsageCacheTTL        *float64 `json:"orderUsageCacheTTL"`
}

// TTLPolicy resolves freshness windows from remote overrides, then config.
type TTLPolicy struct {
	cfgProvider config.Provider
	logger      domain.Logger

	mu        sync.RWMutex
	overrides map[Resource]time.Duration
}

func NewTTLPolicy(cfgProvider config.Provider, logger domain.Logger) *TTLPolicy {
	return &TTLPolicy{
		cfgProvider: cfgProvider,
		logger:      logger,
		overrides:   map[Resource]time.Duration{},
	}
}

func (p *TTLPolicy) TTL(r Resource) time.Duration {
	p.mu.RLock()
	d, ok := p.overrides[r]
	p.mu.RUnlock()
	if ok {
		return d
	}
	return p.configured(r)
}

func (p *TTLPolicy) configured(r Resource) time.Duration {
	cfg := p.cfgProvider.Get()
	ttl := cfg.Cache.TTL
	seconds := 0
	switch r {
	case ResourceCatalog:
		seconds = ttl.Catalog
	case ResourceOrders:
		seconds = ttl.Orders
	case ResourceOrderDetail:
		seconds = ttl.OrderDetail
	case ResourceOrderUsage:
		seconds = ttl.OrderUsage
		if seconds == 0 {
			seconds = 60
			if cfg.IsMock() {
				seconds = 15
			}
		}
	case ResourceAgentAccount:
		seconds = ttl.AgentAccount
	case ResourceAgentBills:
		seconds = ttl.AgentBills
	case ResourceBundleNetworks:
		seconds = ttl.BundleNetworks
	case ResourceSettings:
		seconds = ttl.Settings
	case ResourceSearchSuggestions:
		seconds = ttl.SearchSuggestions
	}
	return time.Duration(seconds) * time.Second
}

// LoadRemote fetches GET /config and replaces the overrides with the TTLs it
// carries. On failure the previous overrides stay in place.
func (p *TTLPolicy) LoadRemote(ctx context.Context, client *httpclient.Client) error {
	rc, err := httpclient.Get[remoteConfig](ctx, client, "/config")
	if err != nil {
		return fmt.Errorf("load remote config: %w", err)
	}
	overrides := map[Resource]time.Duration{}
	set := func(r Resource, v *float64) {
		if v != nil && *v >= 0 {
			overrides[r] = time.Duration(*v * float64(time.Second))
		}
	}
	set(ResourceCatalog, rc.CatalogCacheTTL)
	set(ResourceOrders, rc.OrdersCacheTTL)
	set(ResourceOrderDetail, rc.OrderDetailCacheTTL)
	set(ResourceAgentAccount, rc.AgentAccountCacheTTL)
	set(ResourceAgentBills, rc.AgentBillsCacheTTL)
	set(ResourceBundleNetworks, rc.BundleNetworksCacheTTL)
	set(ResourceSettings, rc.SettingsCacheTTL)
	set(ResourceSearchSuggestions, rc.SearchSuggestionsCacheTTL)
	set(ResourceOrderUsage, rc.OrderUsageCacheTTL)

	p.mu.Lock()
	p.overrides = overrides
	p.mu.Unlock()
	p.logger.Info(ctx, "Applied remote cache TTLs", "overrides", len(overrides))
	return nil
}
