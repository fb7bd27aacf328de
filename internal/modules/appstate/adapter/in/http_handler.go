package in

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appstatedto "ridesafe/internal/modules/appstate/dto"
	appstatein "ridesafe/internal/modules/appstate/port/in"
	apperrors "ridesafe/internal/platform/errors"
)

type HTTPHandler struct {
	usecase appstatein.Usecase
}

func NewHTTPHandler(usecase appstatein.Usecase) HTTPHandler {
	return HTTPHandler{usecase: usecase}
}

// Register mounts the state routes under group.
func (h HTTPHandler) Register(group *gin.RouterGroup) {
	group.GET("/state", h.state)
	group.POST("/state/theme", h.toggleTheme)
	group.POST("/state/actions", h.dispatch)
}

func (h HTTPHandler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.usecase.State(c.Request.Context()))
}

func (h HTTPHandler) toggleTheme(c *gin.Context) {
	out, err := h.usecase.Dispatch(c.Request.Context(), appstatedto.ActionInput{Type: "TOGGLE_THEME"})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h HTTPHandler) dispatch(c *gin.Context) {
	var input appstatedto.ActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	out, err := h.usecase.Dispatch(c.Request.Context(), input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func statusFor(err error) int {
	if errors.Is(err, apperrors.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
