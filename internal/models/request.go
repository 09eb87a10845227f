package models

import (
	"strings"
	"unicode/utf8"
)

// GenerateCourseRequest is the body of POST /api/v1/courses/generate.
type GenerateCourseRequest struct {
	Query      string `json:"query"`
	CourseName string `json:"courseName"`
	UseCache   *bool  `json:"useCache"`
	RequestID  string `json:"request_id"`
}

// implements the Validator interface
func (r *GenerateCourseRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return &ErrorResponse{
			Code:    "missing_query",
			Message: "Query field is required",
		}
	}

	n := utf8.RuneCountInString(r.Query)
	if n < MinQueryLength {
		return &ErrorResponse{
			Code:    "query_too_short",
			Message: "Query must be at least 3 characters",
		}
	}
	if n > MaxQueryLength {
		return &ErrorResponse{
			Code:    "query_too_long",
			Message: "Query must be at most 200 characters",
		}
	}

	r.CourseName = strings.TrimSpace(r.CourseName)
	if r.CourseName == "" {
		r.CourseName = DefaultCourseName
	}
	if utf8.RuneCountInString(r.CourseName) > MaxQueryLength {
		return &ErrorResponse{
			Code:    "course_name_too_long",
			Message: "Course name must be at most 200 characters",
		}
	}

	return nil
}

// CacheEnabled reports whether the lesson cache may be read. Absent means yes.
func (r *GenerateCourseRequest) CacheEnabled() bool {
	return r.UseCache == nil || *r.UseCache
}

// InvalidateCacheRequest is the body of DELETE /api/v1/courses/cache.
type InvalidateCacheRequest struct {
	Query      string `json:"query"`
	CourseName string `json:"courseName"`
}

func (r *InvalidateCacheRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return &ErrorResponse{Code: "missing_query", Message: "Query field is required"}
	}
	r.CourseName = strings.TrimSpace(r.CourseName)
	if r.CourseName == "" {
		r.CourseName = DefaultCourseName
	}
	return nil
}
