package staff

import (
	handlershared "github.com/comanda-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getIdentity(c *gin.Context) (handlershared.StaffIdentity, bool) {
	return handlershared.CurrentStaff(c)
}

func parseIDParam(c *gin.Context, invalidKey string) (uint, bool) {
	return handlershared.ParseUintParam(c, "id", invalidKey)
}
