package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/marketplace-service/cache"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/services"
)

type fakeImages struct{}

func (fakeImages) PublicURL(_ context.Context, key string) (string, error) {
	if key == "broken" {
		return "", errors.New("no bucket")
	}
	return "https://cdn.example.com/" + key, nil
}

func sampleVendors() []models.Vendor {
	return []models.Vendor{
		{ID: uuid.New(), BusinessName: "Royal Caterers", Category: "catering", Location: "Mumbai", Rating: 4.8, ReviewCount: 120, ImageKey: "vendors/royal.jpg", Active: true},
		{ID: uuid.New(), BusinessName: "Spice Route", Category: "catering", Location: "Mumbai", Rating: 4.5, ReviewCount: 40, Active: true},
	}
}

func newMarketplace(vendors *mockVendorRepo, events *mockEventRepo, store services.ResponseCache) services.MarketplaceService {
	return services.NewMarketplaceService(vendors, events, store, fakeImages{}, nil, testLogger())
}

func TestNormalizeVendorFilter(t *testing.T) {
	f := services.NormalizeVendorFilter(services.ListVendorsParams{Category: " Catering ", Page: 0, Limit: 0})
	assert.Equal(t, "catering", f.Category)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 12, f.Limit)

	f = services.NormalizeVendorFilter(services.ListVendorsParams{Page: 3, Limit: 500})
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 50, f.Limit)
}

func TestPaginate(t *testing.T) {
	p := services.Paginate(1, 12, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)

	p = services.Paginate(3, 12, 25)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)

	p = services.Paginate(1, 12, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)
}

func TestService_ListVendors_SecondCallServedFromCache(t *testing.T) {
	repo := &mockVendorRepo{listFn: func(_ context.Context, f models.VendorFilter) ([]models.Vendor, int64, error) {
		assert.Equal(t, 1, f.Page)
		assert.Equal(t, 12, f.Limit)
		return sampleVendors(), 2, nil
	}}
	svc := newMarketplace(repo, newMockEventRepo(), cache.New())
	params := services.ListVendorsParams{Page: 1, Limit: 12}

	first, err := svc.ListVendors(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, first.Hit)

	second, err := svc.ListVendors(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, second.Hit)

	assert.Equal(t, []byte(first.Body), []byte(second.Body))
	assert.Equal(t, 1, repo.listCalls)
}

func TestService_ListVendors_ShapesResponse(t *testing.T) {
	repo := &mockVendorRepo{listFn: func(context.Context, models.VendorFilter) ([]models.Vendor, int64, error) {
		return sampleVendors(), 14, nil
	}}
	svc := newMarketplace(repo, newMockEventRepo(), cache.New())

	out, err := svc.ListVendors(context.Background(), services.ListVendorsParams{Category: "catering", Page: 1, Limit: 2})
	require.NoError(t, err)

	var resp models.VendorListResponse
	require.NoError(t, json.Unmarshal(out.Body, &resp))
	require.Len(t, resp.Vendors, 2)
	assert.Equal(t, "https://cdn.example.com/vendors/royal.jpg", resp.Vendors[0].ImageURL)
	assert.Empty(t, resp.Vendors[1].ImageURL)
	assert.Equal(t, models.Pagination{
		CurrentPage: 1, TotalPages: 7, TotalItems: 14, ItemsPerPage: 2, HasNextPage: true, HasPrevPage: false,
	}, resp.Pagination)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Body, &raw))
	assert.Contains(t, raw, "vendors")
	assert.Contains(t, raw["pagination"], "hasNextPage")
}

func TestService_ListVendors_EquivalentParamsShareEntry(t *testing.T) {
	repo := &mockVendorRepo{listFn: func(context.Context, models.VendorFilter) ([]models.Vendor, int64, error) {
		return nil, 0, nil
	}}
	svc := newMarketplace(repo, newMockEventRepo(), cache.New())

	_, err := svc.ListVendors(context.Background(), services.ListVendorsParams{Category: "Catering"})
	require.NoError(t, err)
	out, err := svc.ListVendors(context.Background(), services.ListVendorsParams{Category: " catering", Page: 1, Limit: 12})
	require.NoError(t, err)

	assert.True(t, out.Hit)
	assert.Equal(t, 1, repo.listCalls)
	assert.JSONEq(t, `{"vendors":[],"pagination":{"currentPage":1,"totalPages":0,"totalItems":0,"itemsPerPage":12,"hasNextPage":false,"hasPrevPage":false}}`, string(out.Body))
}

func TestService_ListVendors_ExpiredEntryRequeries(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := cache.New(cache.WithClock(func() time.Time { return now }))
	repo := &mockVendorRepo{listFn: func(context.Context, models.VendorFilter) ([]models.Vendor, int64, error) {
		return sampleVendors(), 2, nil
	}}
	svc := newMarketplace(repo, newMockEventRepo(), store)

	_, err := svc.ListVendors(context.Background(), services.ListVendorsParams{})
	require.NoError(t, err)
	now = now.Add(cache.VendorsTTL + time.Second)
	out, err := svc.ListVendors(context.Background(), services.ListVendorsParams{})
	require.NoError(t, err)

	assert.False(t, out.Hit)
	assert.Equal(t, 2, repo.listCalls)
}

func TestService_ListVendors_ErrorNotCached(t *testing.T) {
	calls := 0
	repo := &mockVendorRepo{listFn: func(context.Context, models.VendorFilter) ([]models.Vendor, int64, error) {
		calls++
		if calls == 1 {
			return nil, 0, errBoom
		}
		return sampleVendors(), 2, nil
	}}
	store := cache.New()
	svc := newMarketplace(repo, newMockEventRepo(), store)

	_, err := svc.ListVendors(context.Background(), services.ListVendorsParams{})
	assertKind(t, err, apperrors.KindInternal)
	assert.Equal(t, 0, store.Len())

	out, err := svc.ListVendors(context.Background(), services.ListVendorsParams{})
	require.NoError(t, err)
	assert.False(t, out.Hit)
}

// Writes do not invalidate cached listings; a new vendor appears after the TTL.
func TestService_RegisterVendor_DoesNotInvalidateListing(t *testing.T) {
	var stored []models.Vendor
	repo := &mockVendorRepo{
		listFn: func(context.Context, models.VendorFilter) ([]models.Vendor, int64, error) {
			return stored, int64(len(stored)), nil
		},
		createFn: func(_ context.Context, v *models.Vendor) error {
			v.ID = uuid.New()
			stored = append(stored, *v)
			return nil
		},
	}
	svc := newMarketplace(repo, newMockEventRepo(), cache.New())

	before, err := svc.ListVendors(context.Background(), services.ListVendorsParams{})
	require.NoError(t, err)

	v, err := svc.RegisterVendor(context.Background(), &models.RegisterVendorInput{
		BusinessName: "Bloom Decor", Email: "Hello@Bloom.in", Category: "Decor", Location: "Pune",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello@bloom.in", v.Email)
	assert.Equal(t, "decor", v.Category)

	after, err := svc.ListVendors(context.Background(), services.ListVendorsParams{})
	require.NoError(t, err)
	assert.True(t, after.Hit)
	assert.Equal(t, []byte(before.Body), []byte(after.Body))
}

func TestService_RegisterVendor_DuplicateEmail(t *testing.T) {
	repo := &mockVendorRepo{createFn: func(context.Context, *models.Vendor) error {
		return gorm.ErrDuplicatedKey
	}}
	svc := newMarketplace(repo, newMockEventRepo(), cache.New())

	_, err := svc.RegisterVendor(context.Background(), &models.RegisterVendorInput{
		BusinessName: "Bloom Decor", Email: "hello@bloom.in", Category: "decor", Location: "Pune",
	})
	assertKind(t, err, apperrors.KindConflict)
}

func TestService_RegisterVendor_MissingFields(t *testing.T) {
	svc := newMarketplace(&mockVendorRepo{}, newMockEventRepo(), cache.New())

	_, err := svc.RegisterVendor(context.Background(), &models.RegisterVendorInput{Email: "hello@bloom.in"})
	assertKind(t, err, apperrors.KindValidation)
	assert.Equal(t, "businessName", apperrors.From(err).Field)
}

func TestService_GetVendor(t *testing.T) {
	v := sampleVendors()[0]
	lookups := 0
	repo := &mockVendorRepo{findFn: func(_ context.Context, id uuid.UUID) (*models.Vendor, error) {
		lookups++
		if id != v.ID {
			return nil, gorm.ErrRecordNotFound
		}
		return &v, nil
	}}
	svc := newMarketplace(repo, newMockEventRepo(), cache.New())

	out, err := svc.GetVendor(context.Background(), v.ID)
	require.NoError(t, err)
	var summary models.VendorSummary
	require.NoError(t, json.Unmarshal(out.Body, &summary))
	assert.Equal(t, "Royal Caterers", summary.BusinessName)

	out, err = svc.GetVendor(context.Background(), v.ID)
	require.NoError(t, err)
	assert.True(t, out.Hit)

	_, err = svc.GetVendor(context.Background(), uuid.New())
	assertKind(t, err, apperrors.KindNotFound)
	assert.Equal(t, 2, lookups)
}

func TestService_ListEvents(t *testing.T) {
	events := newMockEventRepo()
	svc := newMarketplace(&mockVendorRepo{}, events, cache.New())

	out, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	var list []models.EventSummary
	require.NoError(t, json.Unmarshal(out.Body, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "wedding", list[0].Slug)
	assert.Equal(t, "https://cdn.example.com/events/wedding.jpg", list[0].ImageURL)

	_, err = svc.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, events.listCalls)
}
