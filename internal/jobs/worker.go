package jobs

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one rendered email. Delivery mechanics live with the
// implementation; the worker only cares about success or failure.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

type Worker struct {
	ID     string
	Repo   *Repo
	Sender Sender
	Log    *zap.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Error("worker claim failed", zap.Error(err))
				continue
			}
			if job == nil {
				continue
			}
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job *Job) {
	switch job.Type {
	case TypeAlertEmail:
		w.handleAlertEmail(job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleAlertEmail(job *Job) {
	var msg AlertEmail
	if err := json.Unmarshal(job.Payload, &msg); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}
	if msg.To == "" {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	if err := w.Sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
		w.Log.Warn("alert email send failed",
			zap.Uint64("job", job.ID),
			zap.Int("attempt", job.Attempts+1),
			zap.Error(err))
		w.retry(job, err.Error())
		return
	}

	w.Log.Info("alert email sent", zap.Uint64("job", job.ID), zap.Uint64("user", job.UserID))
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
