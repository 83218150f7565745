package store

import (
	"time"

	"github.com/knowix/knowix/internal/model"
)

// ExportCourses builds the export payload: full courses with question
// progress, for one user or for everyone when userID is empty.
func (s *Store) ExportCourses(userID string) (model.CourseExport, error) {
	query := `SELECT id FROM courses ORDER BY created_at`
	var args []any
	if userID != "" {
		query = `SELECT id FROM courses WHERE user_id = ? ORDER BY created_at`
		args = append(args, userID)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return model.CourseExport{}, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.CourseExport{}, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return model.CourseExport{}, err
	}

	export := model.CourseExport{
		ExportedAt: time.Now(),
		UserID:     userID,
	}
	for _, id := range ids {
		course, err := s.GetCourse(id)
		if err != nil {
			return model.CourseExport{}, err
		}
		export.Courses = append(export.Courses, course)
	}
	return export, nil
}
