// internal/app/store/students/studentstore.go
package students

import (
	"context"
	"fmt"

	"github.com/dalemusser/studentportal/internal/app/system/portalapi"
	"github.com/dalemusser/studentportal/internal/domain/models"
)

// Store reads and writes student records on the school backend.
// Each method issues exactly one request.
type Store struct {
	api *portalapi.Client
}

func New(api *portalapi.Client) *Store {
	return &Store{api: api}
}

type countResponse struct {
	StudentCount int `json:"studentCount"`
}

// Count returns the number of registered students (GET /studentcount).
func (s *Store) Count(ctx context.Context) (int, error) {
	var out countResponse
	if err := s.api.Get(ctx, "studentcount", "/studentcount", &out); err != nil {
		return 0, fmt.Errorf("student count: %w", err)
	}
	return out.StudentCount, nil
}

// List returns the full roster (GET /allstudents). A JSON null decodes as
// an empty roster.
func (s *Store) List(ctx context.Context) ([]models.Student, error) {
	var out []models.Student
	if err := s.api.Get(ctx, "allstudents", "/allstudents", &out); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if out == nil {
		out = []models.Student{}
	}
	return out, nil
}

// Register submits a new student (POST /register). Only the status
// counts: whatever the backend echoes on success is discarded.
func (s *Store) Register(ctx context.Context, reg models.Registration) error {
	if err := s.api.Post(ctx, "register", "/register", reg, nil); err != nil {
		return fmt.Errorf("register student: %w", err)
	}
	return nil
}
