package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates route registration for the public API.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all routes under the /api prefix behind authMiddleware.
func (r *Routes) Register(router gin.IRouter, authMiddleware gin.HandlerFunc) {
	group := router.Group("/api", authMiddleware)
	registerChatRoutes(group.Group("/chat"), r.handlers.Chat)
	registerClassroomRoutes(group.Group("/classroom"), r.handlers.Classroom)
}

func registerChatRoutes(router gin.IRoutes, handler *handlers.ChatHandler) {
	router.POST("/send", handler.Send)
	router.GET("/history", handler.History)
}

func registerClassroomRoutes(router gin.IRoutes, handler *handlers.ClassroomHandler) {
	router.POST("/send", handler.Send)
	router.GET("/:assistantType", handler.History)
	router.DELETE("/:assistantType", handler.Clear)
}
