package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// jitter spreads expirations by up to 10% of ttl.
type jitter struct {
	ttl time.Duration
	mu  sync.Mutex
	rnd *rand.Rand
}

func newJitter(ttl time.Duration) *jitter {
	return &jitter{ttl: ttl, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (j *jitter) next() time.Duration {
	if j.ttl <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	jitterMax := int64(j.ttl) / 10
	return j.ttl + time.Duration(j.rnd.Int63n(jitterMax+1))
}

// QuizCache keeps quizzes as JSON under quiz:{id} and falls back to the
// wrapped repository on a miss. Cache failures degrade to the backing store.
type QuizCache struct {
	app.QuizRepository

	client *redis.Client
	ttl    *jitter
	sf     singleflight.Group
}

func NewQuizCache(client *redis.Client, next app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{QuizRepository: next, client: client, ttl: newJitter(ttl)}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if quiz, ok := c.cached(ctx, quizID); ok {
			return quiz, nil
		}
		seen := readVersion(ctx, c.client, quizVersionKey(quizID))
		quiz, err := c.QuizRepository.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if payload, err := json.Marshal(quiz); err == nil {
			ttl := c.ttl.next()
			_ = fillIfUnchanged(ctx, c.client, quizVersionKey(quizID), seen, func(pipe redis.Pipeliner) {
				pipe.Set(ctx, quizKey(quizID), payload, ttl)
			})
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := c.QuizRepository.UpdateQuiz(ctx, quiz); err != nil {
		return err
	}
	return c.invalidate(ctx, quiz.ID)
}

func (c *QuizCache) DeleteQuiz(ctx context.Context, quizID string) error {
	if err := c.QuizRepository.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	return c.invalidate(ctx, quizID)
}

func (c *QuizCache) invalidate(ctx context.Context, quizID string) error {
	c.sf.Forget(quizID)
	if err := invalidate(ctx, c.client, quizVersionKey(quizID), quizKey(quizID)); err != nil {
		return domain.Storage("invalidate quiz cache", err)
	}
	return nil
}

func (c *QuizCache) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	payload, err := c.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

// QuestionCache keeps each quiz's questions in a hash:
//
//	HSET quiz:{quizID}:questions {questionID} {question JSON}
//
// Lookups read the whole hash; an empty or missing hash is a miss. Writes bump
// quiz:{quizID}:questions:ver so that loads started before them are discarded.
type QuestionCache struct {
	app.QuestionRepository

	client *redis.Client
	ttl    *jitter
	sf     singleflight.Group
}

func NewQuestionCache(client *redis.Client, next app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{QuestionRepository: next, client: client, ttl: newJitter(ttl)}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	return c.load(ctx, quizID)
}

func (c *QuestionCache) FindQuestions(ctx context.Context, quizID string, ids []string) ([]domain.Question, error) {
	all, err := c.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]domain.Question, 0, len(ids))
	for _, q := range all {
		if _, ok := want[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (c *QuestionCache) TotalMarks(ctx context.Context, quizID string) (int, error) {
	all, err := c.load(ctx, quizID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, q := range all {
		total += q.Marks
	}
	return total, nil
}

func (c *QuestionCache) CreateQuestion(ctx context.Context, q domain.Question) error {
	if err := c.QuestionRepository.CreateQuestion(ctx, q); err != nil {
		return err
	}
	return c.invalidate(ctx, q.QuizID)
}

func (c *QuestionCache) DeleteQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	removed, err := c.QuestionRepository.DeleteQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return removed, c.invalidate(ctx, quizID)
}

func (c *QuestionCache) load(ctx context.Context, quizID string) ([]domain.Question, error) {
	if qs, ok := c.cached(ctx, quizID); ok {
		return qs, nil
	}
	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if qs, ok := c.cached(ctx, quizID); ok {
			return qs, nil
		}
		seen := readVersion(ctx, c.client, questionsVersionKey(quizID))
		qs, err := c.QuestionRepository.ListQuestions(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if len(qs) == 0 {
			return qs, nil
		}
		fields := make([]any, 0, 2*len(qs))
		for _, q := range qs {
			payload, err := json.Marshal(q)
			if err != nil {
				return qs, nil
			}
			fields = append(fields, q.ID, payload)
		}
		key := questionsKey(quizID)
		ttl := c.ttl.next()
		_ = fillIfUnchanged(ctx, c.client, questionsVersionKey(quizID), seen, func(pipe redis.Pipeliner) {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, fields...)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
		})
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) cached(ctx context.Context, quizID string) ([]domain.Question, bool) {
	fields, err := c.client.HGetAll(ctx, questionsKey(quizID)).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	qs := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, false
		}
		qs = append(qs, q)
	}
	// hashes are unordered
	sort.SliceStable(qs, func(i, j int) bool {
		if !qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].CreatedAt.Before(qs[j].CreatedAt)
		}
		return qs[i].ID < qs[j].ID
	})
	return qs, true
}

func (c *QuestionCache) invalidate(ctx context.Context, quizID string) error {
	c.sf.Forget(quizID)
	if err := invalidate(ctx, c.client, questionsVersionKey(quizID), questionsKey(quizID)); err != nil {
		return domain.Storage("invalidate question cache", err)
	}
	return nil
}

// errStaleFill aborts a fill that raced with an invalidation.
var errStaleFill = errors.New("cache entry invalidated during load")

// readVersion returns the invalidation counter at verKey, 0 when unset.
func readVersion(ctx context.Context, client *redis.Client, verKey string) int64 {
	v, err := client.Get(ctx, verKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

// fillIfUnchanged runs write in a MULTI block only while verKey still holds
// seen, the counter read before the backing store was queried. Writers bump
// the counter, so a load that overlapped a write never lands in the cache.
func fillIfUnchanged(ctx context.Context, client *redis.Client, verKey string, seen int64, write func(redis.Pipeliner)) error {
	return client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != seen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			return nil
		})
		return err
	}, verKey)
}

// invalidate bumps the counter and drops the cached value in one transaction.
func invalidate(ctx context.Context, client *redis.Client, verKey, key string) error {
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, verKey)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

func quizKey(quizID string) string {
	return "quiz:" + quizID
}

func questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func quizVersionKey(quizID string) string {
	return "quiz:" + quizID + ":ver"
}

func questionsVersionKey(quizID string) string {
	return "quiz:" + quizID + ":questions:ver"
}
