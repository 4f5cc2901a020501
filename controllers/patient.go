package controllers

import (
	"net/http"

	"Attentus/models"
	"Attentus/services"
	"Attentus/util"

	"github.com/gin-gonic/gin"
)

func Patient(router *gin.RouterGroup, s *services.Services) {
	patient := router.Group("/patients")
	{
		patient.POST("", CreatePatient(s))
		patient.GET("", FetchAllPatients(s))
		patient.GET("/:id", FetchPatient(s))
		patient.PUT("/:id", UpdatePatient(s))
		patient.DELETE("/:id", DeletePatient(s))
		patient.GET("/:id/appointments", FetchPatientAppointments(s))
	}
}

func CreatePatient(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.PatientInput
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		patient, err := s.CreatePatient(c.Request.Context(), doctor, data)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, util.SuccessResponse(patient))
	}
}

func FetchAllPatients(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		patients, err := s.ListPatients(c.Request.Context(), doctor)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(patients))
	}
}

func FetchPatient(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		patient, err := s.GetPatient(c.Request.Context(), doctor, c.Param("id"))
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(patient))
	}
}

func UpdatePatient(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.PatientUpdate
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		patient, err := s.UpdatePatient(c.Request.Context(), doctor, c.Param("id"), data)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(patient))
	}
}

func DeletePatient(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		if err := s.DeletePatient(c.Request.Context(), doctor, c.Param("id")); err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(util.PATIENT_DELETED))
	}
}

func FetchPatientAppointments(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		appointments, err := s.PatientAppointments(c.Request.Context(), doctor, c.Param("id"))
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(appointments))
	}
}
