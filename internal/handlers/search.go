package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marwanhub/factories-server/internal/models"
	"github.com/marwanhub/factories-server/internal/service/search"
	"github.com/marwanhub/factories-server/internal/util"
)

// SearchHandler queries Elasticsearch when a client is configured and falls
// back to a LIKE query against the database otherwise.
type SearchHandler struct {
	DB    *gorm.DB
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "query parameter q is required",
		})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	ctx := c.Request().Context()

	if h.ES != nil {
		total, products, err := search.Search(ctx, h.ES, h.Index, q, from, limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false, "message": "search failed",
			})
		}
		return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
	}

	pattern := "%" + q + "%"
	dbq := h.DB.WithContext(ctx).Model(&models.Product{}).
		Where("name LIKE ? OR product_type LIKE ? OR factory_type LIKE ?", pattern, pattern, pattern)

	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "search failed",
		})
	}

	var products []models.Product
	if err := dbq.Order("id ASC").Offset(from).Limit(limit).Find(&products).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "search failed",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
