package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Drivers 所有司机名（字母序），用于自动补全
func (h *Handler) Drivers(c *gin.Context) {
	names, err := h.lists.DriverNames(c.Request.Context())
	if err != nil {
		h.storageError(c, "Failed to list drivers", err)
		return
	}
	c.JSON(http.StatusOK, names)
}

// LicensePlates 所有车牌号（字母序），用于自动补全
func (h *Handler) LicensePlates(c *gin.Context) {
	plates, err := h.lists.LicensePlates(c.Request.Context())
	if err != nil {
		h.storageError(c, "Failed to list license plates", err)
		return
	}
	c.JSON(http.StatusOK, plates)
}
