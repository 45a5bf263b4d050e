package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// QuizCache caches GetQuiz results with a TTL in front of another repository.
// Writes go through to the backing repository and invalidate the entry.
type QuizCache struct {
	app.QuizRepository

	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCache(next app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		QuizRepository: next,
		ttl:            ttl,
		clock:          time.Now,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:          make(map[string]cachedQuiz),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := c.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := c.QuizRepository.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.mu.Lock()
		c.cache[quizID] = cachedQuiz{quiz: quiz, expiresAt: c.clock().Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	defer c.Invalidate(quiz.ID)
	return c.QuizRepository.UpdateQuiz(ctx, quiz)
}

func (c *QuizCache) DeleteQuiz(ctx context.Context, quizID string) error {
	defer c.Invalidate(quizID)
	return c.QuizRepository.DeleteQuiz(ctx, quizID)
}

// Invalidate drops the cached entry for quizID.
func (c *QuizCache) Invalidate(quizID string) {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
	c.sf.Forget(quizID)
}

func (c *QuizCache) lookup(quizID string) (domain.Quiz, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

// ttlWithJitter must be called with mu held for writing.
func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
