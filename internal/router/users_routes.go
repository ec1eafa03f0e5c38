package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/handler"
	"github.com/iliyamo/finance-control-api/internal/middleware"
)

// RegisterUsers registers the per user resources under /users/:user_id.
// Every route needs a valid access token and passes the Gate, so only the
// user named in the path or an admin gets through.
func RegisterUsers(e *echo.Echo, r *handler.ResourceHandler, tokens middleware.TokenVerifier) {
	g := e.Group(
		"/users/:user_id",
		middleware.JWTAuth(tokens),
		middleware.Gate("user_id"),
	)

	// ---- Categories ----
	g.GET("/categories", r.ListCategories)
	g.POST("/categories", r.CreateCategory)
	g.GET("/categories/:category_id", r.GetCategory)
	g.PUT("/categories/:category_id", r.UpdateCategory)
	g.DELETE("/categories/:category_id", r.DeleteCategory)

	// ---- Entries ----
	g.GET("/entries", r.ListEntries)
	g.POST("/entries", r.CreateEntry)
	g.GET("/entries/:entry_id", r.GetEntry)
	g.PUT("/entries/:entry_id", r.UpdateEntry)
	g.DELETE("/entries/:entry_id", r.DeleteEntry)

	// ---- Favorites ----
	g.GET("/favorites", r.ListFavorites)
	g.POST("/favorites", r.CreateFavorite)
	g.GET("/favorites/:favorite_id", r.GetFavorite)
	g.PUT("/favorites/:favorite_id", r.UpdateFavorite)
	g.DELETE("/favorites/:favorite_id", r.DeleteFavorite)
}
