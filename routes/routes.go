package routes

import (
	"net/http"

	"Attentus/config/authorization"
	"Attentus/controllers"
	"Attentus/services"
	"Attentus/util"

	"github.com/gin-gonic/gin"
)

func Routes(r *gin.Engine, s *services.Services) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, util.SuccessResponse("ok"))
	})

	api := r.Group("/api")
	//public
	controllers.Auth(api, s)
	//private routes
	private := api.Group("")
	private.Use(authorization.JWTAuth(s.Doctors))
	controllers.Doctor(private, s)
	controllers.Patient(private, s)
	controllers.Appointment(private, s)
	controllers.Chat(private, s)
}
