package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/middleware"
	"github.com/devlog-app/backend/internal/search"
	"github.com/devlog-app/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// SearchContent handles GET /api/search
func (h *Handlers) SearchContent(c *gin.Context) {
	query := c.Query("q")
	searchType := c.DefaultQuery("type", search.TypeAll)
	_, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 50)

	results, apiErr := h.Search.Search(query, searchType, limit, offset, search.RequestMeta{
		UserID:    util.OptionalUserID(c),
		ClientIP:  c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	middleware.RecordSearchQuery(searchType)

	c.JSON(http.StatusOK, results)
}

// SearchSuggestions handles GET /api/search/suggestions
func (h *Handlers) SearchSuggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"suggestions": h.Search.Suggestions(c.Query("q")),
	})
}

// TrendingSearches handles GET /api/search/trending
func (h *Handlers) TrendingSearches(c *gin.Context) {
	limit := util.ParseInt(c.Query("limit"), 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	trending, apiErr := h.Search.TrendingSearches(c.Query("period"), limit)
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trending": trending})
}
