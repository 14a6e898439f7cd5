package handlers

import (
	"net/http"
	"strings"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// CategoryRequest is the payload for creating or updating a category
type CategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

// ListCategories handles GET /api/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := database.DB.Order("name ASC").Find(&categories).Error; err != nil {
		util.RespondInternalError(c, "failed to list categories")
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory handles POST /api/admin/categories
func (h *Handlers) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "name is required")
		return
	}

	if req.ParentID != nil && *req.ParentID != "" {
		var parent models.Category
		if err := database.DB.Where("id = ?", *req.ParentID).First(&parent).Error; err != nil {
			util.RespondNotFound(c, "parent category")
			return
		}
		// Keep the tree shallow: a child cannot itself have a parent
		if parent.ParentID != nil {
			util.RespondValidationError(c, "parent_id", "categories nest at most one level deep")
			return
		}
	} else {
		req.ParentID = nil
	}

	category := models.Category{
		Name:        req.Name,
		Slug:        util.Slugify(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
	}

	if err := database.DB.Create(&category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			util.RespondConflict(c, "category")
			return
		}
		logger.ErrorWithFields("failed to create category", err)
		util.RespondInternalError(c, "failed to create category")
		return
	}

	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/admin/categories/:id
func (h *Handlers) UpdateCategory(c *gin.Context) {
	var category models.Category
	if err := database.DB.Where("id = ?", c.Param("id")).First(&category).Error; err != nil {
		util.RespondNotFound(c, "category")
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "name is required")
		return
	}

	category.Name = req.Name
	category.Slug = util.Slugify(req.Name)
	category.Description = req.Description

	if err := database.DB.Save(&category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			util.RespondConflict(c, "category")
			return
		}
		util.RespondInternalError(c, "failed to update category")
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/admin/categories/:id. Posts in the
// category are detached, not deleted.
func (h *Handlers) DeleteCategory(c *gin.Context) {
	var category models.Category
	if err := database.DB.Where("id = ?", c.Param("id")).First(&category).Error; err != nil {
		util.RespondNotFound(c, "category")
		return
	}

	var children int64
	database.DB.Model(&models.Category{}).Where("parent_id = ?", category.ID).Count(&children)
	if children > 0 {
		util.RespondBadRequest(c, "delete child categories first")
		return
	}

	database.DB.Model(&models.Post{}).Where("category_id = ?", category.ID).
		UpdateColumn("category_id", nil)

	if err := database.DB.Delete(&category).Error; err != nil {
		util.RespondInternalError(c, "failed to delete category")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}

// ListTags handles GET /api/tags, most used first
func (h *Handlers) ListTags(c *gin.Context) {
	_, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 200)

	query := database.DB.Model(&models.Tag{})
	if q := c.Query("q"); q != "" {
		query = query.Where("name ILIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var tags []models.Tag
	if err := query.Order("post_count DESC, name ASC").Limit(limit).Offset(offset).Find(&tags).Error; err != nil {
		util.RespondInternalError(c, "failed to list tags")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// ListPostsByTag handles GET /api/tags/:name/posts
func (h *Handlers) ListPostsByTag(c *gin.Context) {
	var tag models.Tag
	if err := database.DB.Where("name = ?", strings.ToLower(c.Param("name"))).First(&tag).Error; err != nil {
		util.RespondNotFound(c, "tag")
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	var posts []models.Post
	err := database.DB.
		Preload("Author").
		Preload("Tags").
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id = ?", tag.ID).
		Where("posts.status = ?", models.PostStatusPublished).
		Order("posts.published_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		util.RespondInternalError(c, "failed to list posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tag":   tag,
		"posts": posts,
		"page":  page,
		"limit": limit,
	})
}
