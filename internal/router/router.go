package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/psds-microservice/helpdesk-bot/api"
	"github.com/psds-microservice/helpdesk-bot/internal/handler"
)

const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathSwagger = "/swagger"
	PathAPIV1   = "/api/v1"
)

type Deps struct {
	Updates  *handler.UpdateHandler
	Admin    *handler.AdminHandler
	AdminKey string
	Ready    func(ctx context.Context) error
}

func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(PathHealth, handler.Health)
	r.GET(PathReady, handler.Ready(d.Ready))
	r.GET(PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, PathSwagger+"/") })
	r.GET(PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = PathSwagger + "/index.html"
			c.Request.RequestURI = PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(PathSwagger+"/openapi.json"))(c)
	})

	v1 := r.Group(PathAPIV1)
	{
		v1.POST("/updates", d.Updates.Receive)

		admin := v1.Group("", handler.AdminKey(d.AdminKey))
		admin.GET("/tickets", d.Admin.ListTickets)
		admin.GET("/tickets/:id", d.Admin.GetTicket)
		admin.GET("/faq", d.Admin.ListFAQ)
		admin.GET("/stats", d.Admin.Stats)
	}

	return r
}
