package api

import "github.com/gin-gonic/gin"

// RegisterRoutes configures all API routes on the given router
func (a *API) RegisterRoutes(router *gin.Engine) {
	// Root endpoint - API discovery
	router.GET("/", a.Base.HandleRoot)

	v1 := router.Group("/v1")
	v1.Use(a.rateLimitRead())
	{
		v1.GET("/health", a.Base.HandleHealth)
		v1.GET("/version", a.Base.HandleVersion)

		migrations := v1.Group("/migrations")
		{
			migrations.GET("", a.Migrations.HandleStatus)
			migrations.GET("/:app/:name/sql", a.Migrations.HandleSQL)
		}

		instances := v1.Group("/extra-process-instances")
		{
			instances.GET("", a.Instances.HandleList)
			instances.GET("/:id", a.Instances.HandleGet)
		}

		dts := v1.Group("/sqlserver-dts-infos")
		{
			dts.GET("", a.DtsInfos.HandleList)
			dts.GET("/:id", a.DtsInfos.HandleGet)
		}
	}

	// Write routes carry their own, tighter budget
	v1Write := router.Group("/v1")
	v1Write.Use(a.rateLimitWrite())
	{
		v1Write.PUT("/extra-process-instances/:id/bk-instance-id", a.Instances.HandleBind)

		v1Write.POST("/sqlserver-dts-infos", a.DtsInfos.HandleCreate)
		v1Write.PUT("/sqlserver-dts-infos/:id", a.DtsInfos.HandleUpdate)
		v1Write.PUT("/sqlserver-dts-infos/:id/status", a.DtsInfos.HandleUpdateStatus)
	}
}
