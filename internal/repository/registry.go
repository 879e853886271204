package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mixshift/sqp-importer/internal/config"
	"gorm.io/gorm"
)

// TenantContext bundles one tenant's database handle with its repositories.
// Every storage call in the engine goes through an explicit TenantContext,
// so no two tenants' records are ever touched under the same handle.
type TenantContext struct {
	TenantID string
	DB       *gorm.DB

	Sellers     *SellerRepository
	Jobs        *PullJobRepository
	Activity    *ActivityLogRepository
	Eligibility *EligibilityRepository
	Downloads   *DownloadRepository
	Metrics     *MetricRepository
}

func newTenantContext(tenantID string, db *gorm.DB) *TenantContext {
	return &TenantContext{
		TenantID:    tenantID,
		DB:          db,
		Sellers:     NewSellerRepository(db),
		Jobs:        NewPullJobRepository(db),
		Activity:    NewActivityLogRepository(db),
		Eligibility: NewEligibilityRepository(db),
		Downloads:   NewDownloadRepository(db),
		Metrics:     NewMetricRepository(db),
	}
}

// Registry routes storage access to per-tenant connections. Handles are
// opened lazily and cached; the registry also remembers when each tenant
// was last scheduled so the loop can rotate fairly.
type Registry struct {
	mu      sync.Mutex
	tenants []config.TenantConfig
	shared  config.DatabaseConfig
	handles map[string]*TenantContext
	lastRun map[string]time.Time
}

// NewRegistry creates a registry over the configured tenants.
func NewRegistry(tenants []config.TenantConfig, shared config.DatabaseConfig) *Registry {
	return &Registry{
		tenants: tenants,
		shared:  shared,
		handles: make(map[string]*TenantContext),
		lastRun: make(map[string]time.Time),
	}
}

// Context returns the TenantContext for one tenant, opening its connection
// on first use.
func (r *Registry) Context(tenantID string) (*TenantContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contextLocked(tenantID)
}

func (r *Registry) contextLocked(tenantID string) (*TenantContext, error) {
	if tctx, ok := r.handles[tenantID]; ok {
		return tctx, nil
	}
	for i := range r.tenants {
		if r.tenants[i].ID != tenantID {
			continue
		}
		db, err := openTenantDB(&r.tenants[i], &r.shared)
		if err != nil {
			return nil, err
		}
		tctx := newTenantContext(tenantID, db)
		r.handles[tenantID] = tctx
		return tctx, nil
	}
	return nil, fmt.Errorf("unknown tenant %q", tenantID)
}

// Next selects the tenant for the coming run: priority-flagged tenants
// first, then the one scheduled longest ago. The chosen tenant's lastRun
// timestamp is advanced.
func (r *Registry) Next() (*TenantContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.tenants) == 0 {
		return nil, fmt.Errorf("no tenants configured")
	}

	ordered := make([]config.TenantConfig, len(r.tenants))
	copy(ordered, r.tenants)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority
		}
		return r.lastRun[ordered[i].ID].Before(r.lastRun[ordered[j].ID])
	})

	chosen := ordered[0].ID
	tctx, err := r.contextLocked(chosen)
	if err != nil {
		return nil, err
	}
	r.lastRun[chosen] = time.Now()
	return tctx, nil
}

// TenantIDs returns the configured tenant identifiers.
func (r *Registry) TenantIDs() []string {
	ids := make([]string, 0, len(r.tenants))
	for _, t := range r.tenants {
		ids = append(ids, t.ID)
	}
	return ids
}
