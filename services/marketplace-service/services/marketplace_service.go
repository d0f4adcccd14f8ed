package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/eventhub/backend/pkg/aws"
	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/common/metrics"
	"github.com/eventhub/backend/services/marketplace-service/cache"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/repository"
)

const (
	defaultVendorPageSize = 12
	maxVendorPageSize     = 50
)

// ResponseCache holds shaped response payloads by key.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, payload []byte, ttl time.Duration)
}

// ImageResolver turns a stored image key into a URL clients can fetch.
type ImageResolver interface {
	PublicURL(ctx context.Context, key string) (string, error)
}

// ListVendorsParams are the raw listing query parameters.
type ListVendorsParams struct {
	Category string
	Location string
	Search   string
	Page     int
	Limit    int
}

// CachedPayload is a JSON response body and whether it came from the cache.
type CachedPayload struct {
	Body json.RawMessage
	Hit  bool
}

type MarketplaceService interface {
	ListVendors(ctx context.Context, params ListVendorsParams) (*CachedPayload, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*CachedPayload, error)
	ListEvents(ctx context.Context) (*CachedPayload, error)
	RegisterVendor(ctx context.Context, in *models.RegisterVendorInput) (*models.Vendor, error)
}

type marketplaceService struct {
	vendors repository.VendorRepository
	events  repository.EventRepository
	cache   ResponseCache
	images  ImageResolver
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

// NewMarketplaceService wires the cached read paths. images may be nil, in
// which case no image URLs are emitted.
func NewMarketplaceService(
	vendors repository.VendorRepository,
	events repository.EventRepository,
	responseCache ResponseCache,
	images ImageResolver,
	metricsClient *awspkg.MetricsClient,
	logger *zap.Logger,
) MarketplaceService {
	return &marketplaceService{
		vendors: vendors,
		events:  events,
		cache:   responseCache,
		images:  images,
		metrics: metricsClient,
		logger:  logger,
	}
}

// NormalizeVendorFilter applies listing defaults and bounds.
func NormalizeVendorFilter(p ListVendorsParams) models.VendorFilter {
	f := models.VendorFilter{
		Category: strings.ToLower(strings.TrimSpace(p.Category)),
		Location: strings.TrimSpace(p.Location),
		Search:   strings.TrimSpace(p.Search),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultVendorPageSize
	}
	if f.Limit > maxVendorPageSize {
		f.Limit = maxVendorPageSize
	}
	return f
}

func (s *marketplaceService) ListVendors(ctx context.Context, params ListVendorsParams) (*CachedPayload, error) {
	filter := NormalizeVendorFilter(params)
	key := cache.GenerateKey(cache.PrefixVendors, map[string]string{
		"category": filter.Category,
		"location": filter.Location,
		"search":   filter.Search,
		"page":     strconv.Itoa(filter.Page),
		"limit":    strconv.Itoa(filter.Limit),
	})

	return s.cached(ctx, cache.PrefixVendors, key, func() (interface{}, error) {
		rows, total, err := s.vendors.List(ctx, filter)
		if err != nil {
			return nil, s.internal("failed to list vendors", err)
		}
		summaries := make([]models.VendorSummary, 0, len(rows))
		for i := range rows {
			summaries = append(summaries, s.summarize(ctx, &rows[i]))
		}
		return models.VendorListResponse{
			Vendors:    summaries,
			Pagination: Paginate(filter.Page, filter.Limit, total),
		}, nil
	})
}

func (s *marketplaceService) GetVendor(ctx context.Context, id uuid.UUID) (*CachedPayload, error) {
	key := cache.GenerateKey(cache.PrefixVendorDetail, map[string]string{"id": id.String()})
	return s.cached(ctx, cache.PrefixVendorDetail, key, func() (interface{}, error) {
		v, err := s.vendors.FindByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperrors.NotFound("vendor not found")
			}
			return nil, s.internal("failed to load vendor", err)
		}
		return s.summarize(ctx, v), nil
	})
}

func (s *marketplaceService) ListEvents(ctx context.Context) (*CachedPayload, error) {
	key := cache.GenerateKey(cache.PrefixEvents, nil)
	return s.cached(ctx, cache.PrefixEvents, key, func() (interface{}, error) {
		rows, err := s.events.ListActive(ctx)
		if err != nil {
			return nil, s.internal("failed to list events", err)
		}
		out := make([]models.EventSummary, 0, len(rows))
		for _, e := range rows {
			out = append(out, models.EventSummary{
				ID:          e.ID,
				Name:        e.Name,
				Slug:        e.Slug,
				Description: e.Description,
				ImageURL:    s.imageURL(ctx, e.ImageKey),
			})
		}
		return out, nil
	})
}

// RegisterVendor onboards a vendor. Cached listings are left as they are and
// pick the vendor up once their TTL runs out.
func (s *marketplaceService) RegisterVendor(ctx context.Context, in *models.RegisterVendorInput) (*models.Vendor, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	v := &models.Vendor{
		BusinessName: strings.TrimSpace(in.BusinessName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		Category:     strings.ToLower(strings.TrimSpace(in.Category)),
		Location:     strings.TrimSpace(in.Location),
		Description:  strings.TrimSpace(in.Description),
		ImageKey:     strings.TrimSpace(in.ImageKey),
		Active:       true,
	}
	if err := s.vendors.Create(ctx, v); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a vendor with this email is already registered")
		}
		return nil, s.internal("failed to register vendor", err)
	}

	s.logger.Info("vendor registered",
		zap.String("vendor_id", v.ID.String()),
		zap.String("category", v.Category),
	)
	s.metrics.RecordCountAsync(awspkg.MetricVendorsRegistered, map[string]string{"Category": v.Category})
	return v, nil
}

// cached serves key from the cache or builds, marshals and stores it.
// Errors from build are never cached.
func (s *marketplaceService) cached(ctx context.Context, prefix, key string, build func() (interface{}, error)) (*CachedPayload, error) {
	if body, ok := s.cache.Get(key); ok {
		metrics.CacheLookupsTotal.WithLabelValues(prefix, "hit").Inc()
		s.metrics.RecordCountAsync(awspkg.MetricCacheHits, map[string]string{"Prefix": prefix})
		return &CachedPayload{Body: body, Hit: true}, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues(prefix, "miss").Inc()
	s.metrics.RecordCountAsync(awspkg.MetricCacheMisses, map[string]string{"Prefix": prefix})

	value, err := build()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(value)
	if err != nil {
		return nil, s.internal("failed to encode response", err)
	}
	s.cache.Set(key, body, cache.TTLFor(prefix))
	return &CachedPayload{Body: body}, nil
}

func (s *marketplaceService) summarize(ctx context.Context, v *models.Vendor) models.VendorSummary {
	return models.VendorSummary{
		ID:           v.ID,
		BusinessName: v.BusinessName,
		Category:     v.Category,
		Location:     v.Location,
		Description:  v.Description,
		Rating:       v.Rating,
		ReviewCount:  v.ReviewCount,
		ImageURL:     s.imageURL(ctx, v.ImageKey),
	}
}

func (s *marketplaceService) imageURL(ctx context.Context, key string) string {
	if key == "" || s.images == nil {
		return ""
	}
	u, err := s.images.PublicURL(ctx, key)
	if err != nil {
		s.logger.Warn("failed to resolve image url", zap.String("key", key), zap.Error(err))
		return ""
	}
	return u
}

func (s *marketplaceService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.Internal(err)
}

// Paginate derives page metadata from an exact row count.
func Paginate(page, limit int, total int64) models.Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return models.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}
