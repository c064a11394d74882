package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Envelope is the uniform response wrapper returned by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Pagination is the page metadata attached to list responses.
type Pagination struct {
	Current int64 `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

// respondInternal answers an infrastructure fault with a generic failure.
// The underlying error is logged and only echoed back outside production.
func respondInternal(c *gin.Context, production bool, message string, err error) {
	log.Error().Err(err).Str("path", c.FullPath()).Msg(message)

	env := Envelope{Success: false, Message: message}
	if !production && err != nil {
		env.Error = err.Error()
	}
	c.JSON(http.StatusInternalServerError, env)
}
