package controllers

import (
	"net/http"

	"Attentus/config/authorization"
	"Attentus/models"
	"Attentus/services"
	"Attentus/util"

	"github.com/gin-gonic/gin"
)

const signupBodyLimit = 12 << 20

func Auth(router *gin.RouterGroup, s *services.Services) {
	auth := router.Group("/auth")
	auth.POST("/signup", Signup(s))
	auth.POST("/login", Login(s))
	auth.POST("/reset-password", authorization.JWTAuth(s.Doctors), ResetPassword(s))
}

/*
* Bind the multipart form and the optional voice sample
* Pass to the service
 */
func Signup(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limitBody(c, signupBodyLimit)
		var data models.Signup
		if err := c.ShouldBind(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		voice, done, err := formUpload(c, "voiceSample")
		if err != nil {
			util.Fail(c, err)
			return
		}
		defer done()

		response, err := s.Signup(c.Request.Context(), data, voice)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, util.SuccessResponse(response))
	}
}

/*
* Here binding happens with the respective fields if any error return error
* And if no error moves to services
 */
func Login(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var data models.Login
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		response, err := s.Login(c.Request.Context(), data)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(response))
	}
}

func ResetPassword(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var body models.ResetPassword
		if err := c.ShouldBindJSON(&body); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		if err := s.ResetPassword(c.Request.Context(), doctor, body); err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(util.PASSWORD_UPDATED))
	}
}
