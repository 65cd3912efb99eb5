package http

import (
	_ "embed"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/toolsascode/ccm/internal/api/http/dto"
	"github.com/toolsascode/ccm/internal/auth"
	"github.com/toolsascode/ccm/internal/engine"
	"github.com/toolsascode/ccm/internal/progress"
	"github.com/toolsascode/ccm/internal/store"
)

const defaultPageLimit = 100

// Handler handles HTTP API requests
type Handler struct {
	engine *engine.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(service *engine.Service) *Handler {
	return &Handler{
		engine: service,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		// Handle OPTIONS for all routes
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		api.GET("/collections", h.authenticate, h.listCollections)
		api.GET("/collections/:id", h.authenticate, h.getCollection)
		api.POST("/collections/:id/companies", h.authenticate, h.addCompanies)
		// The source segment reuses the :id name; gin requires one wildcard
		// name per path position.
		api.POST("/collections/:id/copy-to/:target", h.authenticate, h.copyCollection)
		api.POST("/collections/:id/move-to/:target", h.authenticate, h.moveCollection)
		api.GET("/operations/:id", h.authenticate, h.getOperation)
		api.GET("/health", h.Health)
		api.GET("/openapi.yaml", h.OpenAPISpec)
		api.GET("/openapi.json", h.OpenAPISpecJSON)
	}
}

// authenticate middleware validates API token
func (h *Handler) authenticate(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token, err := auth.ExtractToken(authHeader)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	if err := auth.ValidateToken(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	c.Next()
}

// listCollections lists all collections
func (h *Handler) listCollections(c *gin.Context) {
	collections, err := h.engine.ListCollections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.CollectionResponse, 0, len(collections))
	for _, collection := range collections {
		items = append(items, dto.CollectionResponse{
			ID:             collection.ID,
			CollectionName: collection.Name,
		})
	}

	c.JSON(http.StatusOK, dto.CollectionListResponse{
		Items: items,
		Total: len(items),
	})
}

// getCollection returns one page of a collection's companies
func (h *Handler) getCollection(c *gin.Context) {
	collectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection id"})
		return
	}

	offset, err := parseQueryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	limit, err := parseQueryInt(c, "limit", defaultPageLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	page, err := h.engine.GetCollectionPage(c.Request.Context(), collectionID, offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	companies := make([]dto.CompanyResponse, 0, len(page.Companies))
	for _, company := range page.Companies {
		companies = append(companies, dto.CompanyResponse{
			ID:          company.ID,
			CompanyName: company.Name,
			Liked:       company.Liked,
		})
	}

	c.JSON(http.StatusOK, dto.CollectionDetailResponse{
		ID:             page.Collection.ID,
		CollectionName: page.Collection.Name,
		Companies:      companies,
		Total:          page.Total,
	})
}

// addCompanies idempotently adds companies to a collection
func (h *Handler) addCompanies(c *gin.Context) {
	collectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection id"})
		return
	}

	var req dto.AddCompaniesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.engine.AddCompanies(c.Request.Context(), collectionID, req.CompanyIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AddCompaniesResponse{Added: added})
}

// copyCollection launches an asynchronous copy operation
func (h *Handler) copyCollection(c *gin.Context) {
	sourceID, targetID, ok := h.parseSourceTarget(c)
	if !ok {
		return
	}

	operation, err := h.engine.LaunchCopy(c.Request.Context(), sourceID, targetID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.OperationResponse{OperationID: operation.ID})
}

// moveCollection launches an asynchronous move operation
func (h *Handler) moveCollection(c *gin.Context) {
	sourceID, targetID, ok := h.parseSourceTarget(c)
	if !ok {
		return
	}

	var req dto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	operation, err := h.engine.LaunchMove(c.Request.Context(), sourceID, targetID, req.CompanyIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.OperationResponse{OperationID: operation.ID})
}

// getOperation returns an operation's progress and status
func (h *Handler) getOperation(c *gin.Context) {
	snapshot, err := h.engine.OperationProgress(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProgressResponse{
		Progress: snapshot.Percent,
		Status:   snapshot.Status,
	})
}

// Health returns service health including a store reachability check
func (h *Handler) Health(c *gin.Context) {
	healthStatus := gin.H{
		"status": "healthy",
		"checks": gin.H{},
	}

	if err := h.engine.HealthCheck(c.Request.Context()); err != nil {
		healthStatus["status"] = "unhealthy"
		healthStatus["checks"].(gin.H)["store"] = err.Error()
	} else {
		healthStatus["checks"].(gin.H)["store"] = "ok"
	}

	statusCode := http.StatusOK
	if healthStatus["status"] == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthStatus)
}

//go:embed openapi.yaml
var openAPISpecYAML []byte

// OpenAPISpec serves the OpenAPI specification in YAML format
func (h *Handler) OpenAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/x-yaml", openAPISpecYAML)
}

// OpenAPISpecJSON serves the OpenAPI specification in JSON format
func (h *Handler) OpenAPISpecJSON(c *gin.Context) {
	var spec map[string]interface{}
	if err := yaml.Unmarshal(openAPISpecYAML, &spec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse OpenAPI spec"})
		return
	}
	c.JSON(http.StatusOK, spec)
}

// parseSourceTarget parses the source and target collection ids from the path
func (h *Handler) parseSourceTarget(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source collection id"})
		return uuid.Nil, uuid.Nil, false
	}
	targetID, err := uuid.Parse(c.Param("target"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target collection id"})
		return uuid.Nil, uuid.Nil, false
	}
	return sourceID, targetID, true
}

// writeError maps domain sentinels to HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, progress.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConstraintViolation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseQueryInt(c *gin.Context, key string, defaultValue int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("invalid query parameter")
	}
	return value, nil
}
