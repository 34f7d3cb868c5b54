package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tdminh/marketplace/internal/handlers"
	"github.com/tdminh/marketplace/internal/service/token"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CategoryHandler *handlers.CategoryHandler
	CartHandler     *handlers.CartHandler
	OrderHandler    *handlers.OrderHandler
	SearchHandler   *handlers.SearchHandler
	TokenService    *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)
	v1.GET("/categories", d.CategoryHandler.GetCategories)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.GET("/products", d.ProductHandler.ListAllProducts)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.PATCH("/products/:id/status", d.ProductHandler.UpdateStatus)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)
	admin.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)

	authed := v1.Group("", d.TokenService.AutoRefreshMiddleware)
	authed.POST("/products", d.ProductHandler.CreateProduct)

	authed.GET("/cart", d.CartHandler.GetCart)
	authed.POST("/cart/items", d.CartHandler.AddItem)
	authed.PUT("/cart/items", d.CartHandler.UpdateItem)
	authed.DELETE("/cart/items/:product_id", d.CartHandler.RemoveItem)
	authed.DELETE("/cart", d.CartHandler.Clear)

	authed.POST("/orders", d.OrderHandler.CreateOrder)
	authed.GET("/orders", d.OrderHandler.ListOrders)
	authed.GET("/orders/:id", d.OrderHandler.GetOrder)
	authed.POST("/orders/paypal", d.OrderHandler.CreateProviderOrder)
	authed.POST("/orders/paypal/:ref/capture", d.OrderHandler.CaptureProviderOrder)
}
