package attempt

import (
	"errors"

	"gorm.io/gorm"

	"classquiz/internal/models"
)

// ErrDuplicateAttempt surfaces a collision on the attempt-sequence unique
// index, which is how a duplicate-submission race shows up.
var ErrDuplicateAttempt = errors.New("attempt number already taken")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func (r *Repository) GetAssignment(assignmentID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.
		Preload("Group").
		Preload("Quiz").
		Preload("Quiz.Questions", orderByPosition).
		Preload("Quiz.Questions.Options", orderByPosition).
		First(&assignment, assignmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound("assignment not found")
		}
		return nil, models.ErrInternal(err)
	}
	return &assignment, nil
}

func (r *Repository) IsGroupMember(groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.Table("group_members").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.ErrInternal(err)
	}
	return count > 0, nil
}

func (r *Repository) CountAttempts(assignmentID, studentID uint) (uint, error) {
	var count int64
	err := r.db.Model(&models.Attempt{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Count(&count).Error
	if err != nil {
		return 0, models.ErrInternal(err)
	}
	return uint(count), nil
}

// CountAttemptsByAssignment returns the student's attempt count per
// assignment in one grouped query. Assignments with no attempts are absent
// from the map.
func (r *Repository) CountAttemptsByAssignment(studentID uint, assignmentIDs []uint) (map[uint]uint, error) {
	counts := make(map[uint]uint, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AssignmentID uint
		N            uint
	}
	err := r.db.Model(&models.Attempt{}).
		Select("assignment_id, COUNT(*) AS n").
		Where("student_id = ? AND assignment_id IN ?", studentID, assignmentIDs).
		Group("assignment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.ErrInternal(err)
	}
	for _, row := range rows {
		counts[row.AssignmentID] = row.N
	}
	return counts, nil
}

func (r *Repository) CreateAttempt(attempt *models.Attempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAttempt
		}
		return models.ErrInternal(err)
	}
	return nil
}

func (r *Repository) GetAttemptByID(attemptID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := r.db.Preload("Answers").First(&attempt, attemptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound("attempt not found")
		}
		return nil, models.ErrInternal(err)
	}
	return &attempt, nil
}

func (r *Repository) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound("user not found")
		}
		return nil, models.ErrInternal(err)
	}
	return &user, nil
}

// ListAssignmentsForStudent returns every assignment reachable through the
// student's group memberships whose quiz is past draft.
func (r *Repository) ListAssignmentsForStudent(studentID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.
		Joins("JOIN groups g ON g.id = assignments.group_id AND g.deleted_at IS NULL").
		Joins("JOIN group_members gm ON gm.group_id = g.id").
		Joins("JOIN quizzes q ON q.id = assignments.quiz_id AND q.deleted_at IS NULL").
		Where("gm.user_id = ? AND q.status <> ?", studentID, models.StatusDraft).
		Preload("Quiz").
		Order("assignments.created_at DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, models.ErrInternal(err)
	}
	return assignments, nil
}

func (r *Repository) StudentGrades(studentID uint) ([]models.GradeRow, error) {
	var rows []models.GradeRow
	err := r.db.Raw(`
        SELECT a.id AS attempt_id,
               a.student_id,
               u.name AS student_name,
               a.quiz_id,
               q.name AS quiz_name,
               a.score,
               a.passing,
               a.submitted_at AS completed_at
        FROM attempts a
        JOIN users u ON u.id = a.student_id
        JOIN quizzes q ON q.id = a.quiz_id
        WHERE a.student_id = ? AND a.completed = ?
        ORDER BY a.submitted_at DESC
    `, studentID, true).Scan(&rows).Error
	if err != nil {
		return nil, models.ErrInternal(err)
	}
	return rows, nil
}
