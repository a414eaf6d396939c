package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/klasnova/klasnova-api/pkg/config"
)

// NewRedis returns a configured Redis client. The caller owns the client and
// should Close it on shutdown.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// StudentResultKey is the cache key for one student's computed result in a
// given academic session and term.
func StudentResultKey(studentID, session string, term int) string {
	return fmt.Sprintf("results:student:%s:%s:%d", studentID, session, term)
}

// StudentResultPattern matches every cached result for the student across
// sessions and terms; used for invalidation on result mutation.
func StudentResultPattern(studentID string) string {
	return fmt.Sprintf("results:student:%s:*", studentID)
}

// SummaryKey is the cache key for a classroom result summary.
func SummaryKey(classroomID, session string, term int) string {
	return fmt.Sprintf("results:summary:%s:%s:%d", classroomID, session, term)
}

// SummaryPattern matches every cached summary for the classroom.
func SummaryPattern(classroomID string) string {
	return fmt.Sprintf("results:summary:%s:*", classroomID)
}
