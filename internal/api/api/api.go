package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"campreg/cmd/middleware"
	"campreg/internal/service"
)

type Routers struct {
	Service service.Service
	Tokens  middleware.TokenParser
	Roles   middleware.RoleResolver
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	// Public camper form.
	apiGroup.POST("/registrations", r.Service.Register)

	// Session lifecycle. Sign-out is idempotent and needs no auth.
	apiGroup.POST("/auth/signup", r.Service.SignUp)
	apiGroup.POST("/auth/signin", r.Service.SignIn)
	apiGroup.POST("/auth/signout", r.Service.SignOut)
	apiGroup.GET("/auth/me", r.Service.Me)

	// Admin dashboard surface.
	adminGroup := apiGroup.Group("/")
	adminGroup.Use(middleware.RequireAdmin(r.Tokens, r.Roles))
	adminGroup.GET("/rooms", r.Service.GetRooms)
	adminGroup.POST("/rooms", r.Service.CreateRoom)
	adminGroup.GET("/rooms/:id", r.Service.GetRoomLabel)
	adminGroup.DELETE("/rooms/:id", r.Service.DeleteRoom)
	adminGroup.GET("/registrations", r.Service.GetRegistrations)

	return app
}
