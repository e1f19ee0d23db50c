package handlers

import (
	"net/http"
	"time"

	"carelink/internal/models"
	"carelink/internal/utils"

	"github.com/gin-gonic/gin"
)

const categoriesCacheKey = "categories"

type NodeHandler struct{}

func NewNodeHandler() *NodeHandler {
	return &NodeHandler{}
}

// ListCategories 分类词表，全进程缓存 10 分钟
func (h *NodeHandler) ListCategories(c *gin.Context) {
	if cached, ok := utils.GetCache().Get(categoriesCacheKey); ok {
		c.JSON(http.StatusOK, cached)
		return
	}
	cats, err := current(c).API.Categories(c.Request.Context())
	if err != nil {
		RenderError(c, err)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	utils.GetCache().Set(categoriesCacheKey, cats, 10*time.Minute)
	c.JSON(http.StatusOK, cats)
}
