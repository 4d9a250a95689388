package group

import (
	"errors"

	"gorm.io/gorm"

	"classquiz/internal/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateGroup(group *models.Group) error {
	if err := r.db.Create(group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrValidation("invite code collision")
		}
		return models.ErrInternal(err)
	}
	return nil
}

func (r *Repository) GetGroupByID(groupID uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.Preload("Members").First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound("group not found")
		}
		return nil, models.ErrInternal(err)
	}
	return &group, nil
}

func (r *Repository) GetGroupByInviteCode(code string) (*models.Group, error) {
	var group models.Group
	if err := r.db.Where("invite_code = ?", code).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound("no group with this invite code")
		}
		return nil, models.ErrInternal(err)
	}
	return &group, nil
}

func (r *Repository) GetGroupsByOwner(ownerID uint) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.Preload("Members").Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&groups).Error; err != nil {
		return nil, models.ErrInternal(err)
	}
	return groups, nil
}

func (r *Repository) GetGroupsByMember(userID uint) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.
		Joins("JOIN group_members gm ON gm.group_id = groups.id").
		Where("gm.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, models.ErrInternal(err)
	}
	return groups, nil
}

func (r *Repository) DeleteGroup(groupID uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, groupID).Error
	})
	if err != nil {
		return models.ErrInternal(err)
	}
	return nil
}

func (r *Repository) IsMember(groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.Table("group_members").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.ErrInternal(err)
	}
	return count > 0, nil
}

func (r *Repository) AddMember(group *models.Group, user *models.User) error {
	if err := r.db.Model(group).Association("Members").Append(user); err != nil {
		return models.ErrInternal(err)
	}
	return nil
}

func (r *Repository) RemoveMember(group *models.Group, userID uint) error {
	if err := r.db.Model(group).Association("Members").Delete(&models.User{ID: userID}); err != nil {
		return models.ErrInternal(err)
	}
	return nil
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

func (r *Repository) GetQuizByID(quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound("quiz not found")
		}
		return nil, models.ErrInternal(err)
	}
	return &quiz, nil
}

func (r *Repository) CreateAssignment(assignment *models.Assignment) error {
	if err := r.db.Create(assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrValidation("quiz is already assigned to this group")
		}
		return models.ErrInternal(err)
	}
	return nil
}

func (r *Repository) GetAssignmentsByGroup(groupID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.Preload("Quiz").Where("group_id = ?", groupID).Find(&assignments).Error; err != nil {
		return nil, models.ErrInternal(err)
	}
	return assignments, nil
}

// GroupGrades flattens every completed attempt in the group into report rows.
func (r *Repository) GroupGrades(groupID uint) ([]models.GradeRow, error) {
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
        JOIN assignments asg ON asg.id = a.assignment_id
        JOIN users u ON u.id = a.student_id
        JOIN quizzes q ON q.id = a.quiz_id
        WHERE asg.group_id = ? AND a.completed = ?
        ORDER BY a.submitted_at DESC
    `, groupID, true).Scan(&rows).Error
	if err != nil {
		return nil, models.ErrInternal(err)
	}
	return rows, nil
}
