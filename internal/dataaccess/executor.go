package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/observability/metrics"
	"github.com/aryan0dhankhar/okrboard/internal/observability/tracing"
	"github.com/aryan0dhankhar/okrboard/internal/reliability/retry"
	"github.com/aryan0dhankhar/okrboard/pkg/cache"
)

// ErrUnauthenticated is returned by fetchers when the caller's credentials were rejected.
var ErrUnauthenticated = errors.New("unauthenticated")

// Options configures an Executor.
type Options struct {
	Cache       *cache.Cache
	TTL         time.Duration
	MaxAttempts int
	Backoff     time.Duration
	Logger      *slog.Logger
}

// Executor runs tenant-scoped queries with caching and capped retries.
type Executor struct {
	cache  *cache.Cache
	ttl    time.Duration
	retry  *retry.Config
	logger *slog.Logger
}

// NewExecutor creates an executor. A zero TTL disables caching.
func NewExecutor(opts Options) *Executor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New()
	}
	cfg := retry.DefaultConfig()
	if opts.MaxAttempts > 0 {
		cfg.MaxAttempts = opts.MaxAttempts
	}
	if opts.Backoff > 0 {
		cfg.InitialBackoff = opts.Backoff
	}
	cfg.ShouldRetry = Retryable
	cfg.OnRetry = func(int, error) { metrics.ObserveRetry() }

	return &Executor{
		cache:  opts.Cache,
		ttl:    opts.TTL,
		retry:  cfg,
		logger: opts.Logger,
	}
}

// Retryable reports whether a failed query may be attempted again.
// Authentication, authorization and not-found errors are final.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrNoTenant),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Fetch runs fn for scope under key. When the scope has no tenant the query is
// skipped and ok is false with a nil error.
func Fetch[T any](ctx context.Context, e *Executor, scope Scope, key string, fn func(ctx context.Context, f domain.TenantFilter) (T, error)) (_ T, _ bool, err error) {
	var zero T
	if !scope.Resolvable() {
		metrics.ObserveQuery("skipped", 0)
		return zero, false, nil
	}

	ctx, span := tracing.Start(ctx, "dataaccess.Fetch",
		attribute.String("query.key", key),
		attribute.String("tenant.id", scope.spanTenant()),
	)
	defer func() { tracing.End(span, err) }()

	cacheKey := scope.cachePrefix() + key
	if e.ttl > 0 {
		if v, hit := e.cache.Get(cacheKey); hit {
			if typed, ok := v.(T); ok {
				metrics.ObserveCacheHit()
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return typed, true, nil
			}
		}
		metrics.ObserveCacheMiss()
	}

	start := time.Now()
	filter := scope.Filter()
	result, err := retry.Do(ctx, e.retry, e.logger, key, func(ctx context.Context) (T, error) {
		return fn(ctx, filter)
	})
	if err != nil {
		metrics.ObserveQuery("error", time.Since(start))
		return zero, false, err
	}
	metrics.ObserveQuery("ok", time.Since(start))

	if e.ttl > 0 {
		e.cache.Set(cacheKey, result, e.ttl)
	}
	return result, true, nil
}

// Exec runs a write against the scope's concrete tenant and drops that tenant's
// cached reads. Root without a selected tenant cannot write.
func Exec(ctx context.Context, e *Executor, scope Scope, fn func(ctx context.Context, tenantID string) error) (err error) {
	if scope.TenantID == nil {
		metrics.ObserveQuery("skipped", 0)
		return domain.ErrNoTenant
	}
	tenantID := *scope.TenantID

	ctx, span := tracing.Start(ctx, "dataaccess.Exec", attribute.String("tenant.id", tenantID))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	if err := fn(ctx, tenantID); err != nil {
		metrics.ObserveQuery("error", time.Since(start))
		return err
	}
	metrics.ObserveQuery("ok", time.Since(start))
	e.Invalidate(tenantID)
	return nil
}

// Mutate stamps payload with the scope's tenant before handing it to fn.
func Mutate[T domain.TenantScoped](ctx context.Context, e *Executor, scope Scope, payload T, fn func(ctx context.Context, payload T) error) error {
	return Exec(ctx, e, scope, func(ctx context.Context, tenantID string) error {
		if current := payload.Tenant(); current != "" && current != tenantID {
			return fmt.Errorf("%w: payload belongs to another tenant", domain.ErrForbidden)
		}
		payload.SetTenant(tenantID)
		return fn(ctx, payload)
	})
}

// Invalidate drops cached reads of a tenant and every all-tenant read.
func (e *Executor) Invalidate(tenantID string) {
	n := e.cache.Invalidate(ForTenant(tenantID).cachePrefix())
	n += e.cache.Invalidate(Scope{AllTenants: true}.cachePrefix())
	if n > 0 {
		e.logger.Debug("query cache invalidated",
			slog.String("tenant_id", tenantID),
			slog.Int("entries", n),
		)
	}
}
