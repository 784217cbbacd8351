package obituary

import "github.com/gin-gonic/gin"

// ObituaryModule implements the app.Module interface for obituaries.
type ObituaryModule struct {
	handler     *ObituaryHandler
	requireAuth gin.HandlerFunc
	generation  []gin.HandlerFunc
}

// NewModule creates a new ObituaryModule. requireAuth guards the mutating
// routes; generation middleware (rate limiting) wraps biography generation.
// Panics if h or requireAuth is nil.
func NewModule(h *ObituaryHandler, requireAuth gin.HandlerFunc, generation ...gin.HandlerFunc) *ObituaryModule {
	if h == nil {
		panic("obituary.NewModule: handler must not be nil")
	}
	if requireAuth == nil {
		panic("obituary.NewModule: requireAuth must not be nil")
	}
	return &ObituaryModule{handler: h, requireAuth: requireAuth, generation: generation}
}

// RegisterRoutes registers obituary API routes.
func (m *ObituaryModule) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group("/obituary")

	g.GET("/all", m.handler.List)
	g.GET("/details/:id", m.handler.Details)
	g.GET("/search", m.handler.Search)

	generate := append(append([]gin.HandlerFunc{}, m.generation...), m.handler.GenerateBiography)
	g.POST("/generate-biography", generate...)

	g.POST("", m.requireAuth, m.handler.Create)
	g.PUT("/:id", m.requireAuth, m.handler.Update)
	g.DELETE("/:id", m.requireAuth, m.handler.Delete)
}
