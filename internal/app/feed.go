package app

import (
	"context"
	"sync"
	"time"

	"quizdesk/internal/domain"
)

// AttemptSummary is what feed subscribers see for each submitted attempt.
type AttemptSummary struct {
	AttemptID   string    `json:"attemptId"`
	QuizID      string    `json:"quizId"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName,omitempty"`
	TotalScore  int       `json:"totalScore"`
	Graded      int       `json:"graded"`
	Skipped     int       `json:"skipped"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// AttemptFeed fans out attempt summaries to subscribers of a quiz.
type AttemptFeed struct {
	mu     sync.Mutex
	topics map[string]map[chan AttemptSummary]struct{}
}

func NewAttemptFeed() *AttemptFeed {
	return &AttemptFeed{topics: make(map[string]map[chan AttemptSummary]struct{})}
}

// Subscribe returns a channel of summaries for quizID. The caller must invoke
// the returned cancel function to release it.
func (f *AttemptFeed) Subscribe(quizID string) (<-chan AttemptSummary, func()) {
	ch := make(chan AttemptSummary, 8)

	f.mu.Lock()
	subs, ok := f.topics[quizID]
	if !ok {
		subs = make(map[chan AttemptSummary]struct{})
		f.topics[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.topics[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.topics, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers summary to every local subscriber.
func (f *AttemptFeed) Publish(_ context.Context, summary AttemptSummary) error {
	f.Deliver(summary)
	return nil
}

// Deliver hands summary to every subscriber without blocking; a full
// subscriber loses its oldest pending summary.
func (f *AttemptFeed) Deliver(summary AttemptSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.topics[summary.QuizID] {
		select {
		case ch <- summary:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- summary
		}
	}
}

// Subscribers reports how many listeners quizID has.
func (f *AttemptFeed) Subscribers(quizID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics[quizID])
}

// SubscribeAttempts opens a live feed of attempts for a quiz owned by the admin.
func (s *Service) SubscribeAttempts(ctx context.Context, id domain.Identity, quizID string) (<-chan AttemptSummary, func(), error) {
	if s.feed == nil {
		return nil, nil, domain.NotFound("feed", quizID)
	}
	if _, err := s.ownedQuiz(ctx, id, quizID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(quizID)
	return ch, cancel, nil
}
