package obituary

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/middleware"
	"github.com/simp-lee/memorial/internal/pkg"
)

// ObituaryHandler handles REST API requests for obituaries.
type ObituaryHandler struct {
	svc domain.ObituaryService
	bio domain.BiographyService
}

// NewHandler creates a new ObituaryHandler.
func NewHandler(svc domain.ObituaryService, bio domain.BiographyService) *ObituaryHandler {
	return &ObituaryHandler{svc: svc, bio: bio}
}

// List handles GET /api/obituary/all.
func (h *ObituaryHandler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, result)
}

// Details handles GET /api/obituary/details/:id.
func (h *ObituaryHandler) Details(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	o, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Search handles GET /api/obituary/search?name=.
func (h *ObituaryHandler) Search(c *gin.Context) {
	results, err := h.svc.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// Create handles POST /api/obituary.
func (h *ObituaryHandler) Create(c *gin.Context) {
	caller, _ := middleware.CurrentPrincipal(c)

	var req ObituaryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	o, err := h.svc.Create(c.Request.Context(), caller, req.toDomain())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// Update handles PUT /api/obituary/:id.
func (h *ObituaryHandler) Update(c *gin.Context) {
	caller, _ := middleware.CurrentPrincipal(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ObituaryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	if err := h.svc.Update(c.Request.Context(), caller, id, req.toDomain()); err != nil {
		pkg.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/obituary/:id.
func (h *ObituaryHandler) Delete(c *gin.Context) {
	caller, _ := middleware.CurrentPrincipal(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), caller, id); err != nil {
		pkg.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateBiography handles POST /api/obituary/generate-biography. Every
// outcome, failures included, uses the GenerateBiographyResponse shape.
func (h *ObituaryHandler) GenerateBiography(c *gin.Context) {
	var req domain.GenerateBiographyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.GenerateBiographyResponse{
			ErrorMessage: "invalid request body",
		})
		return
	}

	text, err := h.bio.Generate(c.Request.Context(), req)
	if err != nil {
		msg := "internal error"
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		c.JSON(domain.HTTPStatusCode(err), domain.GenerateBiographyResponse{ErrorMessage: msg})
		return
	}

	c.JSON(http.StatusOK, domain.GenerateBiographyResponse{
		Success:            true,
		GeneratedBiography: text,
	})
}

// parseID reads the :id path parameter and answers 400 when it is not a
// positive integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid id", nil))
		return 0, false
	}
	return uint(id), true
}
