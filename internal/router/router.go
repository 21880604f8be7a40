// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/marense/feedline/internal/handler"
	"github.com/marense/feedline/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication and no rate
// limiting. Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers credential and session endpoints. The public group
// under /v1/auth carries the stricter auth limiter; logout and password
// change require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, lim *middleware.Limiter, jwtSecret string, skewSec int) {
	g := e.Group("/v1/auth", lim.Auth())
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1/auth", middleware.JWTAuth(jwtSecret, skewSec))
	auth.POST("/logout", a.Logout)
	auth.POST("/change-password", a.ChangePassword)
}

// RegisterUsers registers profile and avatar endpoints. Avatar upload opts
// into the upload limiter on top of the global one.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, lim *middleware.Limiter, jwtSecret string, skewSec int, avatarDir string) {
	e.GET("/v1/users/:id", u.PublicProfile)

	me := e.Group("/v1/me", middleware.JWTAuth(jwtSecret, skewSec))
	me.GET("", u.Me, middleware.RequirePermission("user", "read"))
	me.PATCH("", u.UpdateMe, middleware.RequirePermission("user", "update"))
	me.POST("/avatar", u.UploadAvatar, lim.Upload(), middleware.RequirePermission("user", "update"))
	me.DELETE("/avatar", u.DeleteAvatar, middleware.RequirePermission("user", "update"))

	e.Static("/static/avatars", avatarDir)
}

// RegisterPosts registers post endpoints. The public listing sits behind the
// response cache; single-post reads use optional authentication so owners can
// see their private posts while guests read public ones.
func RegisterPosts(e *echo.Echo, p *handler.PostHandler, cache echo.MiddlewareFunc, jwtSecret string, skewSec int) {
	e.GET("/v1/posts", p.ListPublic, cache)
	e.GET("/v1/posts/:id", p.Get, middleware.OptionalJWTAuth(jwtSecret, skewSec))

	auth := e.Group("/v1/posts", middleware.JWTAuth(jwtSecret, skewSec))
	auth.POST("", p.Create, middleware.RequirePermission("posts", "create"))
	auth.PUT("/:id", p.Update, middleware.RequirePermission("posts", "update"))
	auth.DELETE("/:id", p.Delete, middleware.RequirePermission("posts", "delete"))
}

// RegisterChat registers conversation and message endpoints. Everything here
// requires authentication; membership checks happen in the handler.
func RegisterChat(e *echo.Echo, ch *handler.ChatHandler, jwtSecret string, skewSec int) {
	g := e.Group("/v1/conversations", middleware.JWTAuth(jwtSecret, skewSec))
	g.POST("", ch.CreateConversation, middleware.RequirePermission("conversations", "create"))
	g.GET("", ch.ListMyConversations, middleware.RequirePermission("conversations", "read"))
	g.POST("/:id/members", ch.AddMember, middleware.RequirePermission("conversations", "update"))
	g.POST("/:id/messages", ch.SendMessage, middleware.RequirePermission("messages", "create"))
	g.GET("/:id/messages", ch.ListMessages, middleware.RequirePermission("messages", "read"))
}
