package http

import (
	stdhttp "net/http"
	"strconv"
	"testing"
)

func coursePath(id int64) string {
	return "/api/courses/" + strconv.FormatInt(id, 10)
}

func TestCourseCreateAndGet(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.createUser(t, "alice")

	resp, body := e.doJSON(t, stdhttp.MethodPost, "/api/courses", token, CreateCourseRequest{Name: "Databases 101"})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	created := decodeJSON[CourseResponse](t, body)
	if created.ID == 0 || created.Name != "Databases 101" || created.UserCount != 0 {
		t.Fatalf("unexpected course: %+v", created)
	}

	resp, _ = e.doJSON(t, stdhttp.MethodPost, "/api/courses", token, CreateCourseRequest{Name: "Databases 101"})
	if resp.StatusCode != stdhttp.StatusConflict {
		t.Fatalf("expected 409 for duplicate name, got %d", resp.StatusCode)
	}

	resp, body = e.doJSON(t, stdhttp.MethodGet, coursePath(created.ID), token, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeJSON[CourseResponse](t, body)
	if got.ID != created.ID || got.CreatedAt == "" {
		t.Fatalf("unexpected course: %+v", got)
	}

	resp, body = e.doJSON(t, stdhttp.MethodGet, "/api/courses/999", token, nil)
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if errResp := decodeJSON[ErrorResponse](t, body); errResp.Error != "Course not found" {
		t.Fatalf("unexpected error body: %+v", errResp)
	}
}

func TestCourseEnrollment(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.createUser(t, "alice")
	courseID := e.createCourse(t, "Algorithms")

	// Nothing enrolled yet.
	resp, body := e.doJSON(t, stdhttp.MethodGet, "/api/courses/my", token, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if mine := decodeJSON[[]CourseResponse](t, body); len(mine) != 0 {
		t.Fatalf("expected no courses, got %+v", mine)
	}

	resp, body = e.doJSON(t, stdhttp.MethodPost, coursePath(courseID)+"/enroll", token, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	enrollMsg := decodeJSON[map[string]string](t, body)
	if enrollMsg["message"] != "Successfully enrolled in Algorithms" {
		t.Fatalf("unexpected enroll message: %+v", enrollMsg)
	}

	_, body = e.doJSON(t, stdhttp.MethodGet, "/api/courses/my", token, nil)
	mine := decodeJSON[[]CourseResponse](t, body)
	if len(mine) != 1 || mine[0].ID != courseID || mine[0].UserCount != 1 {
		t.Fatalf("unexpected my courses: %+v", mine)
	}

	resp, _ = e.doJSON(t, stdhttp.MethodPost, "/api/courses/999/enroll", token, nil)
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 enrolling in unknown course, got %d", resp.StatusCode)
	}

	resp, _ = e.doJSON(t, stdhttp.MethodDelete, coursePath(courseID)+"/enroll", token, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200 on unenroll, got %d", resp.StatusCode)
	}
	_, body = e.doJSON(t, stdhttp.MethodGet, "/api/courses/my", token, nil)
	if mine := decodeJSON[[]CourseResponse](t, body); len(mine) != 0 {
		t.Fatalf("expected no courses after unenroll, got %+v", mine)
	}
}

func TestCourseList(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.createUser(t, "alice")
	e.createCourse(t, "Networks")
	e.createCourse(t, "Compilers")

	resp, body := e.doJSON(t, stdhttp.MethodGet, "/api/courses", token, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	courses := decodeJSON[[]CourseResponse](t, body)
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses, got %+v", courses)
	}
}
