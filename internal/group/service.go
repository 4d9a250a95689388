package group

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"classquiz/internal/models"
)

// GradeCache is the slice of the Redis layer used for grade reports.
type GradeCache interface {
	GetGroupGrades(ctx context.Context, groupID uint) ([]models.GradeRow, error)
	SetGroupGrades(ctx context.Context, groupID uint, grades []models.GradeRow) error
	InvalidateGroupGrades(ctx context.Context, groupID uint) error
}

type Service struct {
	repo   *Repository
	cache  GradeCache
	logger *zap.Logger
}

func NewService(repo *Repository, cache GradeCache, logger *zap.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

func generateInviteCode() string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	code := make([]byte, 8)
	for i := range code {
		code[i] = charset[rand.Intn(len(charset))]
	}
	return string(code)
}

func (s *Service) Create(ownerID uint, name, description string) (*models.Group, error) {
	group := &models.Group{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}

	// Retry on the off chance two groups draw the same code.
	var err error
	for i := 0; i < 5; i++ {
		group.InviteCode = generateInviteCode()
		if err = s.repo.CreateGroup(group); err == nil {
			return group, nil
		}
		if !models.IsKind(err, models.KindValidation) {
			return nil, err
		}
	}
	return nil, err
}

// ListForUser returns the groups a teacher owns or a student is enrolled in.
func (s *Service) ListForUser(userID uint, role models.Role) ([]models.Group, error) {
	if role == models.RoleTeacher {
		return s.repo.GetGroupsByOwner(userID)
	}
	return s.repo.GetGroupsByMember(userID)
}

func (s *Service) Get(callerID uint, groupID uint) (*models.Group, error) {
	group, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != callerID {
		member, err := s.repo.IsMember(groupID, callerID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, models.ErrUnauthorized("not a member of this group")
		}
	}
	return group, nil
}

// GroupPreview is what an invite link shows before joining.
type GroupPreview struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	OwnerID uint   `json:"owner_id"`
}

func (s *Service) Lookup(inviteCode string) (*GroupPreview, error) {
	group, err := s.repo.GetGroupByInviteCode(inviteCode)
	if err != nil {
		return nil, err
	}
	return &GroupPreview{ID: group.ID, Name: group.Name, OwnerID: group.OwnerID}, nil
}

func (s *Service) Join(studentID uint, inviteCode string) (*models.Group, error) {
	group, err := s.repo.GetGroupByInviteCode(inviteCode)
	if err != nil {
		return nil, err
	}

	member, err := s.repo.IsMember(group.ID, studentID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, models.ErrValidation("already a member of this group")
	}

	user, err := s.repo.GetUserByID(studentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddMember(group, user); err != nil {
		return nil, err
	}

	s.logger.Info("student joined group",
		zap.Uint("group_id", group.ID),
		zap.Uint("student_id", studentID))
	return group, nil
}

func (s *Service) RemoveMember(callerID, groupID, studentID uint) error {
	group, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return models.ErrUnauthorized("not the group owner")
	}

	member, err := s.repo.IsMember(groupID, studentID)
	if err != nil {
		return err
	}
	if !member {
		return models.ErrNotFound("student is not in this group")
	}

	return s.repo.RemoveMember(group, studentID)
}

func (s *Service) Delete(callerID, groupID uint) error {
	group, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return models.ErrUnauthorized("not the group owner")
	}
	return s.repo.DeleteGroup(groupID)
}

func validateSettings(settings models.QuizSettings) error {
	if settings.StartAt != nil && settings.EndAt != nil && !settings.EndAt.After(*settings.StartAt) {
		return models.ErrValidation("end date must be after start date")
	}
	if settings.PassingScore != nil && (*settings.PassingScore < 0 || *settings.PassingScore > 100) {
		return models.ErrValidation("passing score must be between 0 and 100")
	}
	return nil
}

// AssignQuiz pairs one of the teacher's quizzes with one of their groups under
// a settings instance. The same quiz can go to other groups with different
// settings; the same group can't get it twice.
func (s *Service) AssignQuiz(callerID, groupID, quizID uint, settings models.QuizSettings) (*models.Assignment, error) {
	group, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != callerID {
		return nil, models.ErrUnauthorized("not the group owner")
	}

	quiz, err := s.repo.GetQuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != callerID {
		return nil, models.ErrUnauthorized("not the quiz owner")
	}

	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		GroupID:  groupID,
		QuizID:   quizID,
		Settings: settings,
	}
	if err := s.repo.CreateAssignment(assignment); err != nil {
		return nil, err
	}

	s.logger.Info("quiz assigned",
		zap.Uint("group_id", groupID),
		zap.Uint("quiz_id", quizID))
	return assignment, nil
}

func (s *Service) Assignments(callerID, groupID uint) ([]models.Assignment, error) {
	group, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != callerID {
		return nil, models.ErrUnauthorized("not the group owner")
	}
	return s.repo.GetAssignmentsByGroup(groupID)
}

// Grades returns the group's grade report, cached briefly since teachers tend
// to sit on this page while submissions come in.
func (s *Service) Grades(ctx context.Context, callerID, groupID uint) ([]models.GradeRow, error) {
	group, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != callerID {
		return nil, models.ErrUnauthorized("not the group owner")
	}

	if grades, err := s.cache.GetGroupGrades(ctx, groupID); err == nil {
		return grades, nil
	}

	grades, err := s.repo.GroupGrades(groupID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetGroupGrades(ctx, groupID, grades); err != nil {
		s.logger.Warn("cache group grades", zap.Uint("group_id", groupID), zap.Error(err))
	}
	return grades, nil
}
