package controllers

import (
	"net/http"

	"Attentus/models"
	"Attentus/services"
	"Attentus/util"

	"github.com/gin-gonic/gin"
)

const signatureBodyLimit = 6 << 20

func Doctor(router *gin.RouterGroup, s *services.Services) {
	doctor := router.Group("/doctors")
	{
		doctor.GET("", FetchAllDoctors(s))
		doctor.GET("/me", FetchMe)
		doctor.PUT("/me", UpdateMe(s))
		doctor.POST("/me/signature", UploadSignature(s))
		doctor.POST("/me/device-tokens", RegisterDeviceToken(s))
	}
}

func FetchMe(c *gin.Context) {
	doctor, ok := currentDoctor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(doctor))
}

/*
* Bind the fields which are need to be updated
* Pass to the service
 */
func UpdateMe(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.DoctorUpdate
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		updated, err := s.UpdateProfile(c.Request.Context(), doctor, data)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(updated))
	}
}

func UploadSignature(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		limitBody(c, signatureBodyLimit)
		file, done, err := formUpload(c, "signature")
		if err != nil {
			util.Fail(c, err)
			return
		}
		defer done()

		updated, err := s.UploadSignature(c.Request.Context(), doctor, file)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(updated))
	}
}

func RegisterDeviceToken(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.DeviceToken
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		if err := s.RegisterDeviceToken(c.Request.Context(), doctor, data.Token); err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(util.DEVICE_TOKEN_REGISTERED))
	}
}

func FetchAllDoctors(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctors, err := s.ListDoctors(c.Request.Context())
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(doctors))
	}
}
