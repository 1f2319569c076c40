package handlers

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marwanhub/factories-server/internal/events"
	"github.com/marwanhub/factories-server/internal/logging"
	"github.com/marwanhub/factories-server/internal/models"
	"github.com/marwanhub/factories-server/internal/service/search"
	"github.com/marwanhub/factories-server/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	Indexer  *Indexer
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]any) {
	if err := h.Producer.PublishEvent(c.Request().Context(), events.TopicProductEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "invalid product id",
		})
	}

	var product models.Product
	if err := h.DB.WithContext(c.Request().Context()).First(&product, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false, "message": "product not found",
		})
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.Product{})
	if ft := c.QueryParam("factory_type"); ft != "" {
		q = q.Where("factory_type = ?", ft)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not list products",
		})
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not list products",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req struct {
		FactoryType  string  `json:"factory_type"`
		Name         string  `json:"name"`
		ProductType  string  `json:"product_type"`
		FilePath     string  `json:"file_path"`
		FileSize     int64   `json:"file_size"`
		QualityScore float64 `json:"quality_score"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "invalid request body",
		})
	}
	if req.FactoryType == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "factory_type and name are required",
		})
	}
	if req.QualityScore == 0 {
		req.QualityScore = 1.0
	}

	prod := models.Product{
		FactoryType:  req.FactoryType,
		Name:         req.Name,
		ProductType:  req.ProductType,
		FilePath:     req.FilePath,
		FileSize:     req.FileSize,
		QualityScore: req.QualityScore,
		Status:       "completed",
	}

	if err := h.DB.WithContext(c.Request().Context()).Create(&prod).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not create product",
		})
	}

	h.Indexer.Index(c, prod)
	h.publish(c, strconv.FormatUint(uint64(prod.ID), 10), map[string]any{
		"type":       "product_created",
		"product_id": prod.ID,
		"name":       prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "invalid product id",
		})
	}

	res := h.DB.WithContext(c.Request().Context()).Delete(&models.Product{}, id)
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not delete product",
		})
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false, "message": "product not found",
		})
	}

	h.publish(c, strconv.Itoa(id), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// Indexer mirrors created products into Elasticsearch when configured.
type Indexer struct {
	ES        *elasticsearch.Client
	IndexName string
}

func (ix *Indexer) Index(c echo.Context, p models.Product) {
	if ix == nil || ix.ES == nil {
		return
	}
	if err := search.Index(c.Request().Context(), ix.ES, ix.IndexName, p); err != nil {
		logging.FromContext(c.Request().Context()).Error("es_index_failed", "error", err, "product_id", p.ID)
	}
}
