package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/alias"
	"github.com/courseconnect/courseconnect-server/internal/auth"
	"github.com/courseconnect/courseconnect-server/internal/chat"
	"github.com/courseconnect/courseconnect-server/internal/config"
	"github.com/courseconnect/courseconnect-server/internal/pm"
	"github.com/courseconnect/courseconnect-server/internal/store"
)

// NewServer builds the HTTP server with all routes wired.
func NewServer(
	cfg *config.Config,
	authService *auth.Service,
	st store.Store,
	chatService *chat.Service,
	allocator *alias.Allocator,
	pmService *pm.Service,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	authHandlers := NewAuthHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, logger)
	courseHandlers := NewCourseHandlers(st, logger)
	pmHandlers := NewPMHandlers(pmService, logger)
	wsHandler := NewWSHandler(
		authService, st, chatService, allocator,
		cfg.ChatHistoryLimit, cfg.ChatIdleTimeout, cfg.ChatSendBuffer,
		logger,
	)

	api := router.Group("/api")
	api.POST("/auth/register", authHandlers.Register)
	api.POST("/auth/login", authHandlers.Login)

	authorized := api.Group("", AuthMiddleware(authService, logger))
	authorized.GET("/users/me", userHandlers.Me)
	authorized.PUT("/users/me", userHandlers.UpdateProfile)
	authorized.GET("/users/:id", userHandlers.GetUser)

	authorized.GET("/courses", courseHandlers.ListCourses)
	authorized.POST("/courses", courseHandlers.CreateCourse)
	authorized.GET("/courses/my", courseHandlers.MyCourses)
	authorized.GET("/courses/:id", courseHandlers.GetCourse)
	authorized.POST("/courses/:id/enroll", courseHandlers.Enroll)
	authorized.DELETE("/courses/:id/enroll", courseHandlers.Unenroll)

	authorized.POST("/messages", pmHandlers.Send)
	authorized.PUT("/messages/:id", pmHandlers.Edit)
	authorized.DELETE("/messages/:id", pmHandlers.Delete)
	authorized.POST("/messages/:id/read", pmHandlers.MarkRead)
	authorized.GET("/messages/thread/:userId", pmHandlers.ListThread)

	// The socket path carries its own admission checks; auth middleware
	// would hide the distinct pre-upgrade status codes.
	router.GET("/ws/courses/:id", wsHandler.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
