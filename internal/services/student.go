package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/campuspulse-backend/internal/data/repos"
	"github.com/yungbote/campuspulse-backend/internal/domain/auth"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/intake"
	"github.com/yungbote/campuspulse-backend/internal/platform/apierr"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

var recoveryWords = []string{"Cosmic", "Panda", "Echo", "River", "Nebula", "Zen"}

const minRecoveryKeyLen = 6

// GenerateRecoveryKey returns three words and a random hex tag, e.g.
// "Nebula-Zen-Echo-3fa91c". The tag keeps keys from colliding across
// students.
func GenerateRecoveryKey() (string, error) {
	parts := make([]string, 0, 4)
	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(recoveryWords))))
		if err != nil {
			return "", err
		}
		parts = append(parts, recoveryWords[n.Int64()])
	}
	tag := make([]byte, 3)
	if _, err := rand.Read(tag); err != nil {
		return "", err
	}
	parts = append(parts, hex.EncodeToString(tag))
	return strings.Join(parts, "-"), nil
}

const DefaultSessionIdleTTL = 30 * time.Minute

type session struct {
	wizard   *intake.Wizard
	lastSeen time.Time
}

// SessionRegistry holds one intake wizard per student. Sessions idle for
// longer than the TTL are dropped, along with any unsubmitted draft.
type SessionRegistry struct {
	mu        sync.Mutex
	sessions  map[string]*session
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewSessionRegistry(idleTTL time.Duration) *SessionRegistry {
	return newSessionRegistry(idleTTL, time.Now)
}

func newSessionRegistry(idleTTL time.Duration, now func() time.Time) *SessionRegistry {
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}
	return &SessionRegistry{
		sessions:  map[string]*session{},
		idleTTL:   idleTTL,
		lastSweep: now(),
		now:       now,
	}
}

// GetOrCreate returns the student's wizard, building it with create on first
// use. create runs without the registry lock; when two requests race, the
// first wizard stored wins.
func (r *SessionRegistry) GetOrCreate(studentHash string, create func() (*intake.Wizard, error)) (*intake.Wizard, error) {
	if w, ok := r.touch(studentHash); ok {
		return w, nil
	}
	w, err := create()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.sessions[studentHash]; ok {
		s.lastSeen = now
		return s.wizard, nil
	}
	r.sessions[studentHash] = &session{wizard: w, lastSeen: now}
	r.sweepLocked(now)
	return w, nil
}

func (r *SessionRegistry) touch(studentHash string) (*intake.Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[studentHash]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.wizard, true
}

// sweepLocked drops idle sessions, at most once per half TTL.
func (r *SessionRegistry) sweepLocked(now time.Time) {
	if now.Sub(r.lastSweep) < r.idleTTL/2 {
		return
	}
	r.lastSweep = now
	for hash, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.idleTTL {
			delete(r.sessions, hash)
		}
	}
}

type StudentService interface {
	NewRecoveryKey(ctx context.Context) (string, error)
	// Login returns a student token. Any key longer than five characters is
	// accepted; an unseen key starts an empty history.
	Login(ctx context.Context, recoveryKey string) (string, error)
	Wizard(ctx context.Context, studentHash string) (*intake.Wizard, error)
	History(ctx context.Context, studentHash string) ([]pulse.Entry, error)
	Suggestions(ctx context.Context, studentHash string) (Suggestions, error)
	Sync(ctx context.Context, studentHash string) (SyncResult, error)
}

type studentService struct {
	log        *logger.Logger
	history    repos.HistoryRepo
	classifier ClassificationService
	syncer     SyncService
	authSvc    AuthService
	sessions   *SessionRegistry
	scale      pulse.Scale
	salt       string
}

func NewStudentService(
	log *logger.Logger,
	history repos.HistoryRepo,
	classifier ClassificationService,
	syncer SyncService,
	authSvc AuthService,
	sessions *SessionRegistry,
	scale pulse.Scale,
	salt string,
) StudentService {
	return &studentService{
		log:        log.With("service", "StudentService"),
		history:    history,
		classifier: classifier,
		syncer:     syncer,
		authSvc:    authSvc,
		sessions:   sessions,
		scale:      scale,
		salt:       salt,
	}
}

// StudentHash is the stored identity for a recovery key.
func StudentHash(salt, recoveryKey string) string {
	sum := sha256.Sum256([]byte(salt + ":" + recoveryKey))
	return hex.EncodeToString(sum[:])
}

func (s *studentService) NewRecoveryKey(ctx context.Context) (string, error) {
	key, err := GenerateRecoveryKey()
	if err != nil {
		return "", fmt.Errorf("generate recovery key: %w", err)
	}
	return key, nil
}

func (s *studentService) Login(ctx context.Context, recoveryKey string) (string, error) {
	recoveryKey = strings.TrimSpace(recoveryKey)
	if len(recoveryKey) < minRecoveryKeyLen {
		return "", apierr.BadRequest("invalid_recovery_key", fmt.Errorf("recovery key must be longer than %d characters", minRecoveryKeyLen-1))
	}
	hash := StudentHash(s.salt, recoveryKey)
	tok, err := s.authSvc.IssueToken(hash, auth.RoleStudent)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.log.Debug("student login", "student_id", hash)
	return tok, nil
}

func (s *studentService) Wizard(ctx context.Context, studentHash string) (*intake.Wizard, error) {
	return s.sessions.GetOrCreate(studentHash, func() (*intake.Wizard, error) {
		entries, err := s.history.Load(ctx, studentHash)
		if err != nil {
			return nil, err
		}
		opts := intake.Options{Scale: s.scale}
		if n := len(entries); n > 0 {
			opts.Last = entries[n-1].Timestamp
		}
		sink := intake.HistoryFunc(func(ctx context.Context, e pulse.Entry) error {
			_, err := s.history.Append(ctx, studentHash, e)
			return err
		})
		return intake.NewWizard(s.classifier, sink, s.log, opts), nil
	})
}

func (s *studentService) History(ctx context.Context, studentHash string) ([]pulse.Entry, error) {
	return s.history.Load(ctx, studentHash)
}

func (s *studentService) Suggestions(ctx context.Context, studentHash string) (Suggestions, error) {
	entries, err := s.history.Load(ctx, studentHash)
	if err != nil {
		return Suggestions{}, err
	}
	return SuggestionsForHistory(entries), nil
}

func (s *studentService) Sync(ctx context.Context, studentHash string) (SyncResult, error) {
	entries, err := s.history.Load(ctx, studentHash)
	if err != nil {
		return SyncResult{}, err
	}
	return s.syncer.Sync(ctx, entries)
}
