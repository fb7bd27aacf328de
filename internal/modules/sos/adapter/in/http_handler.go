package in

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	sosdto "ridesafe/internal/modules/sos/dto"
	sosin "ridesafe/internal/modules/sos/port/in"
	apperrors "ridesafe/internal/platform/errors"
)

// HTTPHandler exposes the press gesture to remote buttons, e.g. a handlebar
// switch that posts press and release.
type HTTPHandler struct {
	usecase sosin.Usecase
}

func NewHTTPHandler(usecase sosin.Usecase) HTTPHandler {
	return HTTPHandler{usecase: usecase}
}

func (h HTTPHandler) Register(group *gin.RouterGroup) {
	sos := group.Group("/sos")
	sos.POST("/press", h.press)
	sos.POST("/release", h.release)
	sos.POST("/stop", h.stop)
	sos.POST("/location", h.location)
	sos.GET("/status", h.status)
	sos.GET("/alerts", h.alerts)
	sos.GET("/evidence", h.evidence)
}

func (h HTTPHandler) press(c *gin.Context) {
	h.respond(c, func() (any, error) { return h.usecase.PressStart(c.Request.Context()) })
}

func (h HTTPHandler) release(c *gin.Context) {
	h.respond(c, func() (any, error) { return h.usecase.PressEnd(c.Request.Context()) })
}

func (h HTTPHandler) stop(c *gin.Context) {
	h.respond(c, func() (any, error) { return h.usecase.Stop(c.Request.Context()) })
}

func (h HTTPHandler) status(c *gin.Context) {
	h.respond(c, func() (any, error) { return h.usecase.Status(c.Request.Context()) })
}

func (h HTTPHandler) location(c *gin.Context) {
	var input sosdto.LocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.respond(c, func() (any, error) { return h.usecase.ReportLocation(c.Request.Context(), input) })
}

func (h HTTPHandler) alerts(c *gin.Context) {
	h.respond(c, func() (any, error) { return h.usecase.ListAlerts(c.Request.Context()) })
}

func (h HTTPHandler) evidence(c *gin.Context) {
	includeImage := false
	if raw := c.Query("image"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image must be a boolean"})
			return
		}
		includeImage = parsed
	}
	h.respond(c, func() (any, error) {
		return h.usecase.ListEvidence(c.Request.Context(), sosdto.EvidenceQuery{IncludeImage: includeImage})
	})
}

func (h HTTPHandler) respond(c *gin.Context, call func() (any, error)) {
	out, err := call()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
