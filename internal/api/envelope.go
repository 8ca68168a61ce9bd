package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	addedMessage = "Successfully added the new cafe."
	doneMessage  = "Done"
	sorry        = "Sorry"
)

func writeNotFound(c *gin.Context, status int) {
	writeError(c, status, "Not found")
}

func writeError(c *gin.Context, status int, label string) {
	c.JSON(status, gin.H{"error": gin.H{label: sorry}})
}

func writeDone(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": gin.H{"success": doneMessage}})
}
