// Package handoff publishes a match's period boundaries once every
// match-time marker is set.
package handoff

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/pkg/logger"
)

// Message is the body published for a match.
type Message struct {
	MatchID     string                 `json:"matchId"`
	Markers     model.MatchTimeMarkers `json:"markers"`
	PublishedAt time.Time              `json:"publishedAt"`
}

// Publisher delivers marker messages downstream.
type Publisher interface {
	Publish(ctx context.Context, matchID string, markers model.MatchTimeMarkers) error
	Close() error
}

func newMessage(matchID string, markers model.MatchTimeMarkers) Message {
	return Message{MatchID: matchID, Markers: markers, PublishedAt: time.Now().UTC()}
}

// LogPublisher writes messages to the log. It is used when no broker is
// configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses the global one.
func NewLogPublisher(l logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.Get().Named("handoff")
	}
	return &LogPublisher{logger: l}
}

func (p *LogPublisher) Publish(ctx context.Context, matchID string, markers model.MatchTimeMarkers) error {
	body, err := json.Marshal(newMessage(matchID, markers))
	if err != nil {
		return err
	}
	p.logger.Info(ctx, "match time markers ready",
		logger.String("match_id", matchID),
		logger.String("message", string(body)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent publishes return err. Nil restores success.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, matchID string, markers model.MatchTimeMarkers) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, newMessage(matchID, markers))
	return nil
}

// Messages returns a copy of what was published.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *Recorder) Close() error { return nil }
