package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/store"
)

// CourseHandlers provides HTTP handlers for course listing and enrollment.
type CourseHandlers struct {
	store store.CourseStore
	log   *zerolog.Logger
}

// NewCourseHandlers creates a new course handlers instance.
func NewCourseHandlers(st store.CourseStore, logger *zerolog.Logger) *CourseHandlers {
	return &CourseHandlers{
		store: st,
		log:   logger,
	}
}

// CreateCourseRequest represents the create course request body.
type CreateCourseRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// CourseResponse represents a course in API responses.
type CourseResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
	CreatedAt string `json:"createdAt"`
}

func (h *CourseHandlers) courseResponse(c *gin.Context, course *store.Course) CourseResponse {
	count, err := h.store.CountEnrolled(c.Request.Context(), course.ID)
	if err != nil {
		h.log.Warn().Err(err).Int64("course_id", course.ID).Msg("failed to count enrollments")
	}
	return CourseResponse{
		ID:        course.ID,
		Name:      course.Name,
		UserCount: count,
		CreatedAt: course.CreatedAt.Format(time.RFC3339),
	}
}

func courseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid course id"})
		return 0, false
	}
	return id, true
}

// ListCourses handles listing all courses.
// GET /api/courses
func (h *CourseHandlers) ListCourses(c *gin.Context) {
	courses, err := h.store.ListCourses(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list courses")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		response = append(response, h.courseResponse(c, course))
	}
	c.JSON(http.StatusOK, response)
}

// GetCourse handles fetching one course.
// GET /api/courses/:id
func (h *CourseHandlers) GetCourse(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}

	course, err := h.store.GetCourseByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Course not found"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to get course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, h.courseResponse(c, course))
}

// CreateCourse handles course creation.
// POST /api/courses
func (h *CourseHandlers) CreateCourse(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create course request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	course, err := h.store.CreateCourse(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "course with this name already exists"})
			return
		}
		h.log.Error().Err(err).Str("course_name", req.Name).Msg("failed to create course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("course_name", course.Name).Int64("course_id", course.ID).Msg("course created")
	c.JSON(http.StatusCreated, h.courseResponse(c, course))
}

// MyCourses handles listing the caller's enrolled courses.
// GET /api/courses/my
func (h *CourseHandlers) MyCourses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}

	courses, err := h.store.ListCoursesByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list user courses")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		response = append(response, h.courseResponse(c, course))
	}
	c.JSON(http.StatusOK, response)
}

// Enroll handles enrolling the caller into a course.
// POST /api/courses/:id/enroll
func (h *CourseHandlers) Enroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}
	id, ok := courseIDParam(c)
	if !ok {
		return
	}

	course, err := h.store.GetCourseByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Course not found"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to get course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.Enroll(c.Request.Context(), userID, course.ID); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Int64("course_id", id).Msg("failed to enroll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", userID).Int64("course_id", id).Msg("user enrolled")
	c.JSON(http.StatusOK, gin.H{"message": "Successfully enrolled in " + course.Name})
}

// Unenroll handles removing the caller's enrollment.
// DELETE /api/courses/:id/enroll
func (h *CourseHandlers) Unenroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}
	id, ok := courseIDParam(c)
	if !ok {
		return
	}

	course, err := h.store.GetCourseByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Course not found"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to get course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.Unenroll(c.Request.Context(), userID, course.ID); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Int64("course_id", id).Msg("failed to unenroll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully unenrolled from " + course.Name})
}
