package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/application/storefront"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/dto"
)

// StorefrontReader is the storefront application service
type StorefrontReader interface {
	Product(ctx context.Context, id string, rc storefront.ReadContext) (map[string]any, error)
	Collection(ctx context.Context, id string, rc storefront.ReadContext) (map[string]any, error)
	Category(ctx context.Context, id string, rc storefront.ReadContext) (map[string]any, error)
	Singleton(ctx context.Context, name, locale string, populate any) (cms.Entry, error)
}

// StorefrontHandler serves commerce entities merged with their CMS content
type StorefrontHandler struct {
	BaseHandler
	reader StorefrontReader
}

// NewStorefrontHandler creates a new StorefrontHandler
func NewStorefrontHandler(reader StorefrontReader) *StorefrontHandler {
	return &StorefrontHandler{reader: reader}
}

// GetProduct handles GET /store/cms/products/:id
//
// @Summary      Get product with CMS content
// @Description  Returns the commerce product with its CMS entry under cms and each variant merged with its CMS variant.
// @Tags         storefront
// @Produce      json
// @Param        id        path   string  true   "Product ID"
// @Param        locale    query  string  false  "CMS locale, defaults to the configured locale"
// @Param        fields    query  string  false  "Comma separated CMS fields"
// @Param        populate  query  string  false  "CMS populate, JSON or a relation name"
// @Success      200  {object}  object
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /store/cms/products/{id} [get]
func (h *StorefrontHandler) GetProduct(c *gin.Context) {
	rc, ok := h.readContext(c)
	if !ok {
		return
	}
	product, err := h.reader.Product(c.Request.Context(), c.Param("id"), rc)
	if err != nil {
		h.HandleError(c, err, "Product not found", "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// GetCollection handles GET and POST /store/cms/collections/:id
//
// @Summary      Get collection with CMS content
// @Description  Returns the commerce collection with its CMS entry under cms. POST accepts the read parameters as a JSON body.
// @Tags         storefront
// @Accept       json
// @Produce      json
// @Param        id        path   string  true   "Collection ID"
// @Param        locale    query  string  false  "CMS locale, defaults to the configured locale"
// @Param        fields    query  string  false  "Comma separated CMS fields"
// @Param        populate  query  string  false  "CMS populate, JSON or a relation name"
// @Param        request  body  dto.ReadBody  false  "Read parameters, overriding the query string"
// @Success      200  {object}  object
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /store/cms/collections/{id} [get]
// @Router       /store/cms/collections/{id} [post]
func (h *StorefrontHandler) GetCollection(c *gin.Context) {
	rc, ok := h.readContext(c)
	if !ok {
		return
	}
	collection, err := h.reader.Collection(c.Request.Context(), c.Param("id"), rc)
	if err != nil {
		h.HandleError(c, err, "Collection not found", "Failed to fetch collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": collection})
}

// GetCategory handles GET and POST /store/cms/product-categories/:id and its /categories alias
//
// @Summary      Get product category with CMS content
// @Description  Returns the commerce category with its CMS entry under cms. POST accepts the read parameters as a JSON body.
// @Tags         storefront
// @Accept       json
// @Produce      json
// @Param        id        path   string  true   "Category ID"
// @Param        locale    query  string  false  "CMS locale, defaults to the configured locale"
// @Param        fields    query  string  false  "Comma separated CMS fields"
// @Param        populate  query  string  false  "CMS populate, JSON or a relation name"
// @Param        request  body  dto.ReadBody  false  "Read parameters, overriding the query string"
// @Success      200  {object}  object
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /store/cms/product-categories/{id} [get]
// @Router       /store/cms/product-categories/{id} [post]
// @Router       /store/cms/categories/{id} [get]
// @Router       /store/cms/categories/{id} [post]
func (h *StorefrontHandler) GetCategory(c *gin.Context) {
	rc, ok := h.readContext(c)
	if !ok {
		return
	}
	category, err := h.reader.Category(c.Request.Context(), c.Param("id"), rc)
	if err != nil {
		h.HandleError(c, err, "Category not found", "Failed to fetch category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// GetHeader handles GET /store/cms/header
//
// @Summary      Get site header
// @Description  Returns the CMS header single type.
// @Tags         storefront
// @Produce      json
// @Param        locale    query  string  false  "CMS locale"
// @Param        populate  query  string  false  "CMS populate, JSON or a relation name"
// @Success      200  {object}  object
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /store/cms/header [get]
func (h *StorefrontHandler) GetHeader(c *gin.Context) {
	h.singleton(c, cms.SingletonHeader, "An error occurred while fetching the headers")
}

// GetFooter handles GET /store/cms/footer
//
// @Summary      Get site footer
// @Description  Returns the CMS footer single type.
// @Tags         storefront
// @Produce      json
// @Param        locale    query  string  false  "CMS locale"
// @Param        populate  query  string  false  "CMS populate, JSON or a relation name"
// @Success      200  {object}  object
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /store/cms/footer [get]
func (h *StorefrontHandler) GetFooter(c *gin.Context) {
	h.singleton(c, cms.SingletonFooter, "An error occurred while fetching the footer")
}

func (h *StorefrontHandler) singleton(c *gin.Context, name, failMessage string) {
	rc, ok := h.readContext(c)
	if !ok {
		return
	}
	entry, err := h.reader.Singleton(c.Request.Context(), name, rc.Locale, rc.Populate)
	if err != nil {
		h.HandleError(c, err, failMessage, failMessage)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// readContext collects locale, fields and populate from the query string and,
// for POST requests, from the JSON body. Body values win.
func (h *StorefrontHandler) readContext(c *gin.Context) (storefront.ReadContext, bool) {
	var q dto.ReadQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "Invalid query parameters", err)
		return storefront.ReadContext{}, false
	}
	rc := storefront.ReadContext{
		Locale:   q.Locale,
		Fields:   splitFields(q.Fields),
		Populate: parsePopulate(q.Populate),
	}

	if c.Request.Method != http.MethodPost {
		return rc, true
	}
	var body dto.ReadBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body", err)
		return storefront.ReadContext{}, false
	}
	if body.Locale != "" {
		rc.Locale = body.Locale
	}
	if len(body.Fields) > 0 {
		rc.Fields = body.Fields
	}
	if body.Populate != nil {
		rc.Populate = body.Populate
	}
	return rc, true
}

// splitFields splits a comma separated field list, dropping blanks
func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// parsePopulate accepts a JSON document ({"images":true}, ["a","b"], "*")
// or a plain relation name.
func parsePopulate(raw string) any {
	if raw == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
