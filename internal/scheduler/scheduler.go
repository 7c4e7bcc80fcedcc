package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
)

const refreshTimeout = 30 * time.Second

// Scheduler refreshes the access token shortly before it expires and, when
// configured, re-fetches the cached identity on a cron spec.
type Scheduler struct {
	cron         *cron.Cron
	client       *apiclient.Client
	log          zerolog.Logger
	skew         time.Duration
	identitySpec string
	now          func() time.Time

	mu            sync.Mutex
	expiryEntry   cron.EntryID
	expiryAt      time.Time
	identityEntry cron.EntryID
}

func New(client *apiclient.Client, skew time.Duration, identitySpec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		client:       client,
		log:          log,
		skew:         skew,
		identitySpec: identitySpec,
		now:          time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.identitySpec != "" {
		id, err := s.cron.AddFunc(s.identitySpec, s.refreshIdentity)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.identityEntry = id
		s.mu.Unlock()
	}

	if _, _, err := s.Arm(ctx); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop. The returned context is done once a running
// refresh has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Arm schedules the single expiry job for the stored access token, replacing
// any previous one. It reports false when the token's expiry is unreadable,
// in which case nothing is armed.
func (s *Scheduler) Arm(ctx context.Context) (time.Time, bool, error) {
	access, err := s.client.Session().AccessToken(ctx)
	if err != nil {
		return time.Time{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiryEntry != 0 {
		s.cron.Remove(s.expiryEntry)
		s.expiryEntry = 0
		s.expiryAt = time.Time{}
	}

	exp, ok := security.ExpiresAt(access)
	if !ok {
		return time.Time{}, false, nil
	}

	runAt := RunAt(s.now(), exp, s.skew)
	job := &expiryJob{s: s}
	job.id = s.cron.Schedule(&onceSchedule{at: runAt}, job)
	s.expiryEntry = job.id
	s.expiryAt = runAt
	s.log.Debug().Time("run_at", runAt).Time("expires_at", exp).Msg("token refresh armed")
	return runAt, true, nil
}

// Next returns when the armed expiry job will run.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiryAt, s.expiryEntry != 0
}

// RunAt is max(now+1s, exp-skew).
func RunAt(now time.Time, exp time.Time, skew time.Duration) time.Time {
	runAt := exp.Add(-skew)
	earliest := now.Add(time.Second)
	if runAt.Before(earliest) {
		return earliest
	}
	return runAt
}

type expiryJob struct {
	s  *Scheduler
	id cron.EntryID
}

func (j *expiryJob) Run() {
	j.s.fire(j)
}

func (s *Scheduler) fire(job *expiryJob) {
	s.mu.Lock()
	if s.expiryEntry != job.id {
		// replaced by a later Arm
		s.mu.Unlock()
		return
	}
	s.cron.Remove(job.id)
	s.expiryEntry = 0
	s.expiryAt = time.Time{}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if _, err := s.client.Refresh(ctx); err != nil {
		// network failures count as rejection here
		_ = s.client.Expire(ctx, err)
		return
	}
	if _, _, err := s.Arm(ctx); err != nil {
		s.log.Error().Err(err).Msg("re-arm token refresh failed")
	}
}

func (s *Scheduler) refreshIdentity() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	access, err := s.client.Session().AccessToken(ctx)
	if err != nil || access == "" {
		return
	}
	user, err := s.client.Me(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("identity refresh failed")
		return
	}
	s.log.Debug().Int("user_id", user.ID).Msg("identity refreshed")
}

// onceSchedule fires at a single instant and never again.
type onceSchedule struct {
	at time.Time
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}
