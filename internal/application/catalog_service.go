package application

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/httpclient"
	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
	"gitlab.com/simigo/client/datacore/pkg/safego"
)

// Result is a value served by the catalog, possibly from a stale snapshot
// that is being revalidated in the background.
type Result[T any] struct {
	Value     T
	Stale     bool
	UpdatedAt time.Time
}

var allowedPageSizes = []int{10, 25, 50, 100}

const defaultPageSize = 25

// SafePageSize clamps size to a value the upstream accepts.
func SafePageSize(size int) int {
	for _, allowed := range allowedPageSizes {
		if size == allowed {
			return size
		}
	}
	return defaultPageSize
}

// CatalogService serves storefront reads stale-while-revalidate.
type CatalogService struct {
	client  *httpclient.Client
	cache   *SWRCache
	coord   *Coordinator
	ttl     *TTLPolicy
	session *SessionState
	prefs   *Preferences
	logger  domain.Logger
	now     func() time.Time

	wg     sync.WaitGroup
	search Slot
}

func NewCatalogService(
	client *httpclient.Client,
	cache *SWRCache,
	coord *Coordinator,
	ttl *TTLPolicy,
	session *SessionState,
	prefs *Preferences,
	logger domain.Logger,
) *CatalogService {
	if client == nil || cache == nil || coord == nil || ttl == nil || session == nil || prefs == nil || logger == nil {
		panic("nil dependency in NewCatalogService")
	}
	return &CatalogService{
		client:  client,
		cache:   cache,
		coord:   coord,
		ttl:     ttl,
		session: session,
		prefs:   prefs,
		logger:  logger,
		now:     time.Now,
	}
}

// swr serves key from cache when possible. A stale hit is returned at once
// and refreshed in the background; a miss is fetched through the coordinator.
// allowStale lets signed-out readers see the previous user's snapshot.
func swr[T any](ctx context.Context, s *CatalogService, key string, resource Resource, allowStale bool, fetch func(context.Context) (T, error)) (Result[T], error) {
	scope := s.cache.Scope()
	useStale := allowStale && s.session.UseStaleCache()
	if hit, ok := LoadScoped[T](ctx, s.cache, scope, key, s.ttl.TTL(resource), useStale); ok {
		if hit.IsStale {
			revalidate(ctx, s, scope, key, fetch)
		}
		return Result[T]{Value: hit.Value, Stale: hit.IsStale, UpdatedAt: hit.UpdatedAt}, nil
	}
	return refreshScoped(ctx, s, scope, key, fetch)
}

// refresh fetches key from the backend, bypassing the cache read.
func refresh[T any](ctx context.Context, s *CatalogService, key string, fetch func(context.Context) (T, error)) (Result[T], error) {
	return refreshScoped(ctx, s, s.cache.Scope(), key, fetch)
}

// refreshScoped runs the fetch under the scoped key, so callers in different
// scopes never share an execution, and stores the result in that same scope
// even if the user changes while the request is in flight.
func refreshScoped[T any](ctx context.Context, s *CatalogService, scope cachekeys.Scope, key string, fetch func(context.Context) (T, error)) (Result[T], error) {
	v, err := Run(ctx, s.coord, scope.Scoped(key), fetchAndSave(s, scope, key, fetch))
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Value: v, UpdatedAt: s.now()}, nil
}

func fetchAndSave[T any](s *CatalogService, scope cachekeys.Scope, key string, fetch func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		v, err := fetch(ctx)
		if err != nil {
			return v, err
		}
		if err := SaveScoped(ctx, s.cache, scope, key, v); err != nil {
			s.logger.Debug(ctx, "Cache save failed", "key", key, "error", err)
		}
		return v, nil
	}
}

func revalidate[T any](ctx context.Context, s *CatalogService, scope cachekeys.Scope, key string, fetch func(context.Context) (T, error)) {
	bg := context.WithoutCancel(ctx)
	safego.Tracked(bg, s.logger, &s.wg, "revalidate "+key, func() {
		if _, err := Run(bg, s.coord, scope.Scoped(key), fetchAndSave(s, scope, key, fetch)); err != nil {
			s.logger.Debug(bg, "Background revalidation failed", "key", key, "error", err)
		}
	})
}

// WaitRevalidations blocks until background refreshes have finished.
func (s *CatalogService) WaitRevalidations() {
	s.wg.Wait()
}

func (s *CatalogService) Countries(ctx context.Context) (Result[[]domain.Country], error) {
	lang := s.prefs.Language()
	return swr(ctx, s, cachekeys.Countries(lang), ResourceCatalog, false, func(ctx context.Context) ([]domain.Country, error) {
		return httpclient.Get[[]domain.Country](ctx, s.client, "/catalog/countries")
	})
}

func (s *CatalogService) Regions(ctx context.Context) (Result[[]domain.Region], error) {
	lang := s.prefs.Language()
	return swr(ctx, s, cachekeys.Regions(lang), ResourceCatalog, false, func(ctx context.Context) ([]domain.Region, error) {
		return httpclient.Get[[]domain.Region](ctx, s.client, "/catalog/regions")
	})
}

func (s *CatalogService) Bundles(ctx context.Context, q cachekeys.BundlesQuery) (Result[[]domain.Bundle], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize = SafePageSize(q.PageSize)
	lang := s.prefs.Language()
	query := map[string]string{
		"page_number":     strconv.Itoa(q.Page),
		"page_size":       strconv.Itoa(q.PageSize),
		"country_code":    q.Country,
		"region_code":     q.Region,
		"bundle_category": q.Category,
		"sort_by":         q.SortBy,
	}
	return swr(ctx, s, cachekeys.Bundles(q, lang), ResourceCatalog, false, func(ctx context.Context) ([]domain.Bundle, error) {
		bundles, err := httpclient.Get[[]domain.Bundle](ctx, s.client, "/catalog/bundles", httpclient.WithQuery(query))
		if err != nil {
			return nil, err
		}
		if len(bundles) > q.PageSize {
			bundles = bundles[:q.PageSize]
		}
		return bundles, nil
	})
}

func (s *CatalogService) BundleDetail(ctx context.Context, id string) (Result[domain.Bundle], error) {
	if strings.TrimSpace(id) == "" {
		return Result[domain.Bundle]{}, domain.NewInvalidRequest("bundle id is required", nil)
	}
	scope := s.cache.Scope()
	return swr(ctx, s, cachekeys.BundleDetail(id), ResourceCatalog, false, func(ctx context.Context) (domain.Bundle, error) {
		b, err := httpclient.Get[domain.Bundle](ctx, s.client, "/catalog/bundle/"+url.PathEscape(id))
		if err == nil && b.Name != "" {
			if err := SaveScoped(ctx, s.cache, scope, cachekeys.BundleName(id), b.Name); err != nil {
				s.logger.Debug(ctx, "Bundle name save failed", "bundle_id", id, "error", err)
			}
		}
		return b, err
	})
}

// BundleName returns the cached display name for a bundle, fetching the
// detail when it is unknown.
func (s *CatalogService) BundleName(ctx context.Context, id string) (string, error) {
	if hit, ok := Load[string](ctx, s.cache, cachekeys.BundleName(id), s.ttl.TTL(ResourceCatalog), false); ok && !hit.IsStale {
		return hit.Value, nil
	}
	detail, err := s.BundleDetail(ctx, id)
	if err != nil {
		return "", err
	}
	return detail.Value.Name, nil
}

type bundleNetworksBody struct {
	BundleCode string `json:"bundle_code"`
}

func (s *CatalogService) BundleNetworks(ctx context.Context, bundleCode string) (Result[domain.BundleNetworks], error) {
	return swr(ctx, s, cachekeys.BundleNetworks(bundleCode), ResourceBundleNetworks, false, func(ctx context.Context) (domain.BundleNetworks, error) {
		env, err := httpclient.PostEnvelope[domain.BundleNetworks](ctx, s.client, "/bundle/networks/flat", bundleNetworksBody{BundleCode: bundleCode})
		return env.Data, err
	})
}

func (s *CatalogService) Orders(ctx context.Context) (Result[[]domain.Order], error) {
	return swr(ctx, s, cachekeys.Orders(), ResourceOrders, true, s.fetchOrders)
}

// RefreshOrders reloads the order list regardless of cache age.
func (s *CatalogService) RefreshOrders(ctx context.Context) (Result[[]domain.Order], error) {
	return refresh(ctx, s, cachekeys.Orders(), s.fetchOrders)
}

func (s *CatalogService) fetchOrders(ctx context.Context) ([]domain.Order, error) {
	return httpclient.Get[[]domain.Order](ctx, s.client, "/orders")
}

func (s *CatalogService) Order(ctx context.Context, id string) (Result[domain.Order], error) {
	if strings.TrimSpace(id) == "" {
		return Result[domain.Order]{}, domain.NewInvalidRequest("order id is required", nil)
	}
	return swr(ctx, s, cachekeys.Order(id), ResourceOrderDetail, true, func(ctx context.Context) (domain.Order, error) {
		return httpclient.Get[domain.Order](ctx, s.client, "/orders/"+url.PathEscape(id))
	})
}

func (s *CatalogService) OrderUsage(ctx context.Context, orderID string) (Result[domain.OrderUsage], error) {
	if strings.TrimSpace(orderID) == "" {
		return Result[domain.OrderUsage]{}, domain.NewInvalidRequest("order id is required", nil)
	}
	return swr(ctx, s, cachekeys.OrderUsage(orderID), ResourceOrderUsage, true, s.usageFetcher(orderID))
}

// RefreshOrderUsage reloads usage for one order regardless of cache age.
func (s *CatalogService) RefreshOrderUsage(ctx context.Context, orderID string) (Result[domain.OrderUsage], error) {
	return refresh(ctx, s, cachekeys.OrderUsage(orderID), s.usageFetcher(orderID))
}

func (s *CatalogService) usageFetcher(orderID string) func(context.Context) (domain.OrderUsage, error) {
	return func(ctx context.Context) (domain.OrderUsage, error) {
		return httpclient.Get[domain.OrderUsage](ctx, s.client, "/orders/"+url.PathEscape(orderID)+"/usage")
	}
}

func (s *CatalogService) AgentAccount(ctx context.Context) (Result[domain.AgentAccount], error) {
	return swr(ctx, s, cachekeys.AgentAccount(), ResourceAgentAccount, false, func(ctx context.Context) (domain.AgentAccount, error) {
		env, err := httpclient.PostEnvelope[domain.AgentAccount](ctx, s.client, "/agent/account", struct{}{})
		return env.Data, err
	})
}

type billsBody struct {
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	Reference  string `json:"reference,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
}

func (s *CatalogService) AgentBills(ctx context.Context, q cachekeys.BillsQuery) (Result[domain.AgentBills], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize = SafePageSize(q.PageSize)
	body := billsBody{
		PageNumber: q.Page,
		PageSize:   q.PageSize,
		Reference:  q.Reference,
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
	}
	return swr(ctx, s, cachekeys.AgentBills(q), ResourceAgentBills, false, func(ctx context.Context) (domain.AgentBills, error) {
		env, err := httpclient.PostEnvelope[domain.AgentBills](ctx, s.client, "/agent/bills", body)
		return env.Data, err
	})
}

func (s *CatalogService) Languages(ctx context.Context) (Result[[]domain.Language], error) {
	return swr(ctx, s, cachekeys.Languages(), ResourceSettings, false, func(ctx context.Context) ([]domain.Language, error) {
		return httpclient.Get[[]domain.Language](ctx, s.client, "/settings/languages")
	})
}

func (s *CatalogService) Currencies(ctx context.Context) (Result[[]domain.Currency], error) {
	return swr(ctx, s, cachekeys.Currencies(), ResourceSettings, false, func(ctx context.Context) ([]domain.Currency, error) {
		return httpclient.Get[[]domain.Currency](ctx, s.client, "/settings/currencies")
	})
}

// SearchSuggestions serves typeahead results. Only the most recent call may
// deliver: an older call still in flight returns ErrSuperseded.
func (s *CatalogService) SearchSuggestions(ctx context.Context, query string, include []string, limit int) (Result[[]domain.SearchResult], error) {
	ticket := s.search.Begin()
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Result[[]domain.SearchResult]{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	lang := s.prefs.Language()
	params := map[string]string{
		"q":     trimmed,
		"limit": strconv.Itoa(limit),
	}
	if len(include) > 0 {
		sorted := append([]string(nil), include...)
		sort.Strings(sorted)
		params["include"] = strings.Join(sorted, ",")
	}
	key := cachekeys.SearchSuggestions(trimmed, include, limit, lang)
	res, err := swr(ctx, s, key, ResourceSearchSuggestions, false, func(ctx context.Context) ([]domain.SearchResult, error) {
		return httpclient.Get[[]domain.SearchResult](ctx, s.client, "/search", httpclient.WithQuery(params))
	})
	if err != nil {
		return res, err
	}
	if !ticket.Valid() {
		return Result[[]domain.SearchResult]{}, ErrSuperseded
	}
	return res, nil
}

type refundBody struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// RefundOrder requests a refund and drops every cached view of the order.
func (s *CatalogService) RefundOrder(ctx context.Context, orderID, reason string) (domain.RefundResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.RefundResult{}, domain.NewInvalidRequest("order id is required", nil)
	}
	env, err := httpclient.PostEnvelope[domain.RefundResult](ctx, s.client, "/orders/refund-by-id", refundBody{OrderID: orderID, Reason: reason})
	if err != nil {
		return domain.RefundResult{}, fmt.Errorf("refund order %s: %w", orderID, err)
	}
	s.InvalidateOrder(ctx, orderID)
	return env.Data, nil
}

// InvalidateOrder drops the cached usage, detail and list views of an order.
func (s *CatalogService) InvalidateOrder(ctx context.Context, orderID string) {
	for _, key := range []string{cachekeys.OrderUsage(orderID), cachekeys.Order(orderID), cachekeys.Orders()} {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.logger.Debug(ctx, "Cache invalidation failed", "key", key, "error", err)
		}
	}
}
