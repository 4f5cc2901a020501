package controllers

import (
	"net/http"

	"Attentus/models"
	"Attentus/services"
	"Attentus/util"

	"github.com/gin-gonic/gin"
)

// multipart framing and the text fields on top of the audio itself
const recordFormOverhead = 1 << 20

func Appointment(router *gin.RouterGroup, s *services.Services) {
	appointment := router.Group("/appointments")
	{
		appointment.POST("", CreateAppointment(s))
		appointment.GET("", FetchAllAppointments(s))
		appointment.GET("/:id", FetchAppointment(s))
		appointment.PUT("/:id", UpdateAppointment(s))
		appointment.DELETE("/:id", DeleteAppointment(s))
		appointment.POST("/:id/record", RecordAppointment(s))
		appointment.POST("/:id/note", GenerateNote(s))
	}
}

func CreateAppointment(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.AppointmentInput
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		appointment, err := s.CreateAppointment(c.Request.Context(), doctor, data)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, util.SuccessResponse(appointment))
	}
}

/*
* Optional window query, upcoming narrows to the days around now
* Pass to the service
 */
func FetchAllAppointments(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		appointments, err := s.ListAppointments(c.Request.Context(), doctor, c.Query("window"))
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(appointments))
	}
}

func FetchAppointment(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		appointment, err := s.GetAppointment(c.Request.Context(), doctor, c.Param("id"))
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(appointment))
	}
}

func UpdateAppointment(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.AppointmentUpdate
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		appointment, err := s.UpdateAppointment(c.Request.Context(), doctor, c.Param("id"), data)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(appointment))
	}
}

func DeleteAppointment(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		if err := s.DeleteAppointment(c.Request.Context(), doctor, c.Param("id")); err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(util.APPOINTMENT_DELETED))
	}
}

/*
* Cap the body at the audio limit
* Read the audio file and the optional weight, height and mode fields
* Pass to the pipeline
 */
func RecordAppointment(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		if s.MaxAudioBytes > 0 {
			limitBody(c, s.MaxAudioBytes+recordFormOverhead)
		}
		audio, done, err := formUpload(c, "audio")
		if err != nil {
			util.Fail(c, err)
			return
		}
		defer done()

		appointment, err := s.RecordAppointment(c.Request.Context(), doctor, c.Param("id"), services.RecordInput{
			Audio:  audio,
			Weight: c.PostForm("weight"),
			Height: c.PostForm("height"),
			Mode:   c.PostForm("mode"),
		})
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(appointment))
	}
}

func GenerateNote(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		appointment, err := s.RegenerateNote(c.Request.Context(), doctor, c.Param("id"))
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(appointment))
	}
}
