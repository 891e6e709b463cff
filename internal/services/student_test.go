package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/yungbote/campuspulse-backend/internal/domain/auth"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/intake"
	"github.com/yungbote/campuspulse-backend/internal/platform/apierr"
	"github.com/yungbote/campuspulse-backend/internal/platform/ctxutil"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

var recoveryKeyPattern = regexp.MustCompile(`^(Cosmic|Panda|Echo|River|Nebula|Zen)(-(Cosmic|Panda|Echo|River|Nebula|Zen)){2}-[0-9a-f]{6}$`)

func TestGenerateRecoveryKey(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		key, err := GenerateRecoveryKey()
		if err != nil {
			t.Fatalf("GenerateRecoveryKey: %v", err)
		}
		if !recoveryKeyPattern.MatchString(key) {
			t.Fatalf("GenerateRecoveryKey: unexpected shape %q", key)
		}
		seen[key] = true
	}
	if len(seen) < 45 {
		t.Fatalf("GenerateRecoveryKey: only %d distinct keys in 50", len(seen))
	}
}

func TestSuggestionsFallback(t *testing.T) {
	if got := SuggestionsForHistory(nil); got.Sentiment != pulse.SentimentNeutral || got.Daily.Title != "Journaling" {
		t.Fatalf("SuggestionsForHistory(nil): unexpected %+v", got)
	}
	if got := SuggestionsFor("Elated"); got.Sentiment != pulse.SentimentNeutral {
		t.Fatalf("SuggestionsFor(unknown): unexpected %+v", got)
	}
	h := []pulse.Entry{makeEntry(0, 3, 3, pulse.SentimentHappy), makeEntry(1, 3, 5, pulse.SentimentStressed)}
	if got := SuggestionsForHistory(h); got.Sentiment != pulse.SentimentStressed || got.Daily.Title != "Breathing Session" {
		t.Fatalf("SuggestionsForHistory: unexpected %+v", got)
	}
	for _, s := range pulse.Sentiments() {
		if got := SuggestionsFor(s); got.Sentiment != s || got.Monthly.Title == "" {
			t.Fatalf("SuggestionsFor(%s): missing table row", s)
		}
	}
}

type studentFixture struct {
	*fixture
	auth    AuthService
	student StudentService
}

func newStudentFixture(t *testing.T, gen *fakeGenerator) *studentFixture {
	t.Helper()
	f := newFixture(t)
	log := logger.NewNop()
	authSvc, err := NewAuthService(log, nil, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	var classifier ClassificationService
	if gen != nil {
		classifier = NewClassificationService(log, gen, time.Second)
	} else {
		classifier = NewClassificationService(log, nil, time.Second)
	}
	svc := NewStudentService(log, f.set.History, classifier, f.sync, authSvc, NewSessionRegistry(0), pulse.DefaultScale(), "salt")
	return &studentFixture{fixture: f, auth: authSvc, student: svc}
}

func TestStudentLogin(t *testing.T) {
	sf := newStudentFixture(t, nil)
	ctx := context.Background()

	if _, err := sf.student.Login(ctx, "short"); apierr.From(err, "").Code != "invalid_recovery_key" {
		t.Fatalf("Login(short): unexpected error %v", err)
	}
	tok, err := sf.student.Login(ctx, "  Echo-River-Zen  ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	authed, err := sf.auth.SetContextFromToken(ctx, tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.Role != auth.RoleStudent.String() || rd.Subject != StudentHash("salt", "Echo-River-Zen") {
		t.Fatalf("SetContextFromToken: unexpected request data %+v", rd)
	}
	if rd.Subject == "Echo-River-Zen" {
		t.Fatalf("Login: token subject leaks the recovery key")
	}
}

func TestStudentCheckInAndSync(t *testing.T) {
	gen := &fakeGenerator{text: `{"sentiment":"Stressed","keywords":["deadline"],"insight":"Deadlines pile up."}`}
	sf := newStudentFixture(t, gen)
	ctx := context.Background()
	hash := StudentHash("salt", "Cosmic-Panda-Echo")

	w, err := sf.student.Wizard(ctx, hash)
	if err != nil {
		t.Fatalf("Wizard: %v", err)
	}
	again, _ := sf.student.Wizard(ctx, hash)
	if again != w {
		t.Fatalf("Wizard: registry returned a second wizard for one student")
	}

	for i := 0; i < 2; i++ {
		for w.CurrentStep() != intake.StepFreeText {
			if _, err := w.Next(); err != nil {
				t.Fatalf("Next: %v", err)
			}
		}
		if _, err := w.Submit(ctx); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	hist, err := sf.student.History(ctx, hash)
	if err != nil || len(hist) != 2 {
		t.Fatalf("History: err=%v len=%d", err, len(hist))
	}
	sugg, err := sf.student.Suggestions(ctx, hash)
	if err != nil || sugg.Sentiment != pulse.SentimentStressed {
		t.Fatalf("Suggestions: err=%v got=%+v", err, sugg)
	}

	res, err := sf.student.Sync(ctx, hash)
	if err != nil || res.Added != 2 || res.Report == nil {
		t.Fatalf("Sync: err=%v res=%+v", err, res)
	}
	res, err = sf.student.Sync(ctx, hash)
	if err != nil || res.Added != 0 {
		t.Fatalf("Sync (again): err=%v res=%+v", err, res)
	}

	other, err := sf.student.History(ctx, StudentHash("salt", "Zen-Zen-Zen"))
	if err != nil || len(other) != 0 {
		t.Fatalf("History(other): err=%v len=%d", err, len(other))
	}
}

func newTestWizard() *intake.Wizard {
	sink := intake.HistoryFunc(func(context.Context, pulse.Entry) error { return nil })
	return intake.NewWizard(NewClassificationService(logger.NewNop(), nil, time.Second), sink, logger.NewNop(), intake.Options{})
}

func TestSessionRegistryEvictsIdleSessions(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	r := newSessionRegistry(10*time.Minute, func() time.Time { return now })

	creates := 0
	create := func() (*intake.Wizard, error) {
		creates++
		return newTestWizard(), nil
	}
	first, _ := r.GetOrCreate("a", create)
	if again, _ := r.GetOrCreate("a", create); again != first || creates != 1 {
		t.Fatalf("GetOrCreate: expected the cached wizard, creates=%d", creates)
	}

	now = now.Add(4 * time.Minute)
	_, _ = r.GetOrCreate("b", create)

	now = now.Add(8 * time.Minute)
	_, _ = r.GetOrCreate("c", create)
	if _, ok := r.sessions["a"]; ok {
		t.Fatalf("sweep: idle session a was kept")
	}
	if _, ok := r.sessions["b"]; !ok {
		t.Fatalf("sweep: recent session b was dropped")
	}

	if again, _ := r.GetOrCreate("a", create); again == first || creates != 4 {
		t.Fatalf("GetOrCreate: evicted session should be rebuilt, creates=%d", creates)
	}
}

func TestSessionRegistryCreatesOutsideLock(t *testing.T) {
	r := NewSessionRegistry(time.Minute)
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.GetOrCreate("slow", func() (*intake.Wizard, error) {
			close(started)
			<-release
			return newTestWizard(), nil
		})
	}()
	<-started

	fast := make(chan struct{})
	go func() {
		defer close(fast)
		_, _ = r.GetOrCreate("fast", func() (*intake.Wizard, error) { return newTestWizard(), nil })
	}()
	select {
	case <-fast:
	case <-time.After(2 * time.Second):
		t.Fatalf("GetOrCreate: blocked behind another student's create")
	}
	close(release)
	<-done
}

func TestSessionRegistryFirstStoredWins(t *testing.T) {
	r := NewSessionRegistry(time.Minute)
	stored := newTestWizard()
	got, err := r.GetOrCreate("a", func() (*intake.Wizard, error) {
		// a concurrent request stores its wizard while this one is building
		if _, err := r.GetOrCreate("a", func() (*intake.Wizard, error) { return stored, nil }); err != nil {
			return nil, err
		}
		return newTestWizard(), nil
	})
	if err != nil || got != stored {
		t.Fatalf("GetOrCreate: expected the first stored wizard")
	}
}
