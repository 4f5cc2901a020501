package controllers

import (
	"net/http"

	"Attentus/models"
	"Attentus/services"
	"Attentus/util"

	"github.com/gin-gonic/gin"
)

func Chat(router *gin.RouterGroup, s *services.Services) {
	chat := router.Group("/chats")
	{
		chat.POST("", StartChat(s))
		chat.GET("", FetchAllChats(s))
		chat.GET("/:id", FetchChat(s))
		chat.POST("/:id/message", SendMessage(s))
	}
}

func StartChat(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.ChatInput
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		chat, err := s.StartChat(c.Request.Context(), doctor, data.DoctorID)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(chat))
	}
}

func FetchAllChats(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		chats, err := s.ListChats(c.Request.Context(), doctor)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(chats))
	}
}

func FetchChat(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		chat, err := s.GetChat(c.Request.Context(), doctor, c.Param("id"))
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(chat))
	}
}

/*
* Bind the message and pass to the service
* The push to the other doctor happens inside and never fails the request
 */
func SendMessage(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctor, ok := currentDoctor(c)
		if !ok {
			return
		}
		var data models.MessageInput
		if err := c.ShouldBindJSON(&data); err != nil {
			util.Fail(c, bindError(err))
			return
		}
		chat, err := s.SendMessage(c.Request.Context(), doctor, c.Param("id"), data)
		if err != nil {
			util.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(chat))
	}
}
