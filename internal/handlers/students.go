package handlers

import (
	"net/http"

	"cocinarte/internal/models"

	"github.com/gin-gonic/gin"
)

// ListStudents - GET /api/admin/students?page=&pageSize=
func (h *Handlers) ListStudents(c *gin.Context) {
	page, ok := queryInt(c, "List students", "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "List students", "pageSize", 50)
	if !ok {
		return
	}

	students, err := h.students.List(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, "List students", err)
		return
	}

	c.JSON(http.StatusOK, students)
}

func (h *Handlers) GetStudent(c *gin.Context) {
	id, ok := pathID(c, "Get student")
	if !ok {
		return
	}

	student, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Get student", err)
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *Handlers) CreateStudent(c *gin.Context) {
	var req models.StudentRequest
	if !bindJSON(c, "Create student", &req) {
		return
	}

	student, err := h.students.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Create student", err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

func (h *Handlers) UpdateStudent(c *gin.Context) {
	id, ok := pathID(c, "Update student")
	if !ok {
		return
	}
	var req models.StudentRequest
	if !bindJSON(c, "Update student", &req) {
		return
	}

	student, err := h.students.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "Update student", err)
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *Handlers) DeleteStudent(c *gin.Context) {
	id, ok := pathID(c, "Delete student")
	if !ok {
		return
	}

	if err := h.students.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "Delete student", err)
		return
	}

	c.Status(http.StatusNoContent)
}
