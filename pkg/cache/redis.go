package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"classquiz/internal/models"
)

const (
	quizTTL   = 24 * time.Hour
	gradesTTL = 5 * time.Minute
)

// RedisCache is a cache-aside layer over Redis: quizzes are cached for reads
// on the hot student paths, grade reports for the teacher dashboards. Both are
// invalidated by the writers, so TTLs are just a backstop.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: client}
}

func quizKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d", quizID)
}

func gradesKey(groupID uint) string {
	return fmt.Sprintf("grades:group:%d", groupID)
}

func (c *RedisCache) SetQuiz(ctx context.Context, quiz *models.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(quiz.ID), data, quizTTL).Err()
}

func (c *RedisCache) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	data, err := c.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	err = json.Unmarshal(data, &quiz)
	return &quiz, err
}

func (c *RedisCache) InvalidateQuiz(ctx context.Context, quizID uint) error {
	return c.client.Del(ctx, quizKey(quizID)).Err()
}

func (c *RedisCache) SetGroupGrades(ctx context.Context, groupID uint, grades []models.GradeRow) error {
	data, err := json.Marshal(grades)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, gradesKey(groupID), data, gradesTTL).Err()
}

func (c *RedisCache) GetGroupGrades(ctx context.Context, groupID uint) ([]models.GradeRow, error) {
	data, err := c.client.Get(ctx, gradesKey(groupID)).Bytes()
	if err != nil {
		return nil, err
	}

	var grades []models.GradeRow
	err = json.Unmarshal(data, &grades)
	return grades, err
}

func (c *RedisCache) InvalidateGroupGrades(ctx context.Context, groupID uint) error {
	return c.client.Del(ctx, gradesKey(groupID)).Err()
}
