package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/services"
)

// CacheHeader reports whether a read was served from the response cache.
const CacheHeader = "X-Cache"

type MarketplaceController struct {
	marketplaceService services.MarketplaceService
	logger             *zap.Logger
}

func NewMarketplaceController(svc services.MarketplaceService, logger *zap.Logger) *MarketplaceController {
	return &MarketplaceController{marketplaceService: svc, logger: logger}
}

func writeCached(c *gin.Context, p *services.CachedPayload) {
	if p.Hit {
		c.Header(CacheHeader, "HIT")
	} else {
		c.Header(CacheHeader, "MISS")
	}
	apperrors.OK(c, http.StatusOK, p.Body)
}

// queryInt returns 0 for a missing or malformed value; the service applies
// defaults.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// ListVendors handles GET /api/marketplace/vendors.
func (mc *MarketplaceController) ListVendors(c *gin.Context) {
	payload, err := mc.marketplaceService.ListVendors(c.Request.Context(), services.ListVendorsParams{
		Category: c.Query("category"),
		Location: c.Query("location"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	writeCached(c, payload)
}

func (mc *MarketplaceController) GetVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payload, err := mc.marketplaceService.GetVendor(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	writeCached(c, payload)
}

func (mc *MarketplaceController) ListEvents(c *gin.Context) {
	payload, err := mc.marketplaceService.ListEvents(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	writeCached(c, payload)
}

// RegisterVendor handles POST /api/marketplace/vendors.
func (mc *MarketplaceController) RegisterVendor(c *gin.Context) {
	var in models.RegisterVendorInput
	if !bindJSON(c, &in) {
		return
	}
	vendor, err := mc.marketplaceService.RegisterVendor(c.Request.Context(), &in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusCreated, vendor)
}
