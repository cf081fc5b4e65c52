package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"vmxio.com/itpec-quiz/internal/store"
)

// pageParams reads ?page= and ?per_page= (or ?limit=).
func pageParams(c *gin.Context, opt store.Options) store.Params {
	page, _ := strconv.Atoi(c.Query("page"))
	raw := c.Query("per_page")
	if raw == "" {
		raw = c.Query("limit")
	}
	perPage, _ := strconv.Atoi(raw)
	return store.NewParams(page, perPage, opt)
}
