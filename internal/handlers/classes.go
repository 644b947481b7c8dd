package handlers

import (
	"net/http"

	"cocinarte/internal/models"

	"github.com/gin-gonic/gin"
)

func classFilter(c *gin.Context, op string) (models.ClassFilter, bool) {
	var filter models.ClassFilter
	var ok bool

	if filter.From, ok = queryDate(c, op, "from"); !ok {
		return filter, false
	}
	if filter.To, ok = queryDate(c, op, "to"); !ok {
		return filter, false
	}
	if filter.Page, ok = queryInt(c, op, "page", 1); !ok {
		return filter, false
	}
	if filter.PageSize, ok = queryInt(c, op, "pageSize", 20); !ok {
		return filter, false
	}
	return filter, true
}

// ListClasses - GET /api/classes?from=&to=&page=&pageSize=
func (h *Handlers) ListClasses(c *gin.Context) {
	filter, ok := classFilter(c, "List classes")
	if !ok {
		return
	}

	items, err := h.classes.ListUpcoming(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "List classes", err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// SearchClasses - GET /api/classes/search?q=
func (h *Handlers) SearchClasses(c *gin.Context) {
	page, ok := queryInt(c, "Search classes", "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "Search classes", "pageSize", 20)
	if !ok {
		return
	}

	items, err := h.classes.Search(c.Request.Context(), c.Query("q"), page, pageSize)
	if err != nil {
		respondError(c, "Search classes", err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetClass - GET /api/classes/:id
func (h *Handlers) GetClass(c *gin.Context) {
	id, ok := pathID(c, "Get class")
	if !ok {
		return
	}

	class, err := h.classes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Get class", err)
		return
	}

	c.JSON(http.StatusOK, class)
}

// AdminListClasses - GET /api/admin/classes, past sessions included
func (h *Handlers) AdminListClasses(c *gin.Context) {
	filter, ok := classFilter(c, "List classes")
	if !ok {
		return
	}

	classes, err := h.classes.ListAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "List classes", err)
		return
	}

	c.JSON(http.StatusOK, classes)
}

// CreateClass - POST /api/admin/classes
func (h *Handlers) CreateClass(c *gin.Context) {
	var req models.ClassRequest
	if !bindJSON(c, "Create class", &req) {
		return
	}

	class, err := h.classes.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Create class", err)
		return
	}

	c.JSON(http.StatusCreated, class)
}

// UpdateClass - PUT /api/admin/classes/:id
func (h *Handlers) UpdateClass(c *gin.Context) {
	id, ok := pathID(c, "Update class")
	if !ok {
		return
	}
	var req models.ClassRequest
	if !bindJSON(c, "Update class", &req) {
		return
	}

	class, err := h.classes.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "Update class", err)
		return
	}

	c.JSON(http.StatusOK, class)
}

// DeleteClass - DELETE /api/admin/classes/:id
func (h *Handlers) DeleteClass(c *gin.Context) {
	id, ok := pathID(c, "Delete class")
	if !ok {
		return
	}

	if err := h.classes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "Delete class", err)
		return
	}

	c.Status(http.StatusNoContent)
}
