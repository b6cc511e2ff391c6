package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/campus-pay-go/services"
)

func Search(svc *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Search(c.Request.Context(), c.Query("query"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
