package sessions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/documents"
	"legalreview-backend/internal/events"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/items"
	"legalreview-backend/internal/shared/storage/object"
	localstore "legalreview-backend/internal/shared/storage/object/local"
	"legalreview-backend/internal/usage"
)

func stubAnalyzer() analyses.Provider {
	return analyses.ProviderFunc(func(ctx context.Context, kind analyses.Kind, req analyses.Request) (analyses.Findings, error) {
		switch kind {
		case analyses.KindSummary:
			return &analyses.Summary{OverallSummary: "A services agreement."}, nil
		case analyses.KindClauses:
			return &analyses.ClauseFindings{CriticalClauses: []analyses.FlaggedClause{{
				ClauseText: "The Supplier has unlimited liability.",
				Reason:     "Unlimited liability exposure.",
				RiskTags:   []string{"Financial"},
			}}}, nil
		case analyses.KindSuggestions:
			return &analyses.Suggestions{}, nil
		case analyses.KindMissingPoints:
			return &analyses.MissingPoints{
				MissingPoints:   []string{"Governing law"},
				Recommendations: []string{"Add a governing law clause."},
			}, nil
		default:
			return nil, errors.New("model overloaded")
		}
	})
}

func fixedFixer() fixes.Provider {
	return fixes.ProviderFunc(func(ctx context.Context, req fixes.Request) (fixes.Result, error) {
		return fixes.Result{FixedText: "Replacement: " + req.Problem, Justification: "safer"}, nil
	})
}

type recordingAssistant struct {
	got analyses.Request
}

func (a *recordingAssistant) Ask(ctx context.Context, doc analyses.Request, question string) (string, error) {
	a.got = doc
	return "Answer to " + question, nil
}

func newTestService(fixer fixes.Provider) (*Service, *events.Recorder) {
	rec := &events.Recorder{}
	return &Service{
		Documents:    &documents.Service{},
		Orchestrator: &analyses.Orchestrator{Provider: stubAnalyzer()},
		Fixer:        fixer,
		Assistant:    &recordingAssistant{},
		Usage:        usage.NewService(usage.Policy{Plan: "Starter", Limit: 3, Window: time.Hour}),
		Repo:         NewMemoryRepo(),
		Events:       rec,
		TTL:          time.Hour,
	}, rec
}

func startText(t *testing.T, svc *Service, owner string) *Session {
	t.Helper()
	sess, err := svc.Start(context.Background(), StartInput{
		Owner:    owner,
		FileName: "services agreement.txt",
		Text:     "The Supplier has unlimited liability.",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

func TestStartBuildsSession(t *testing.T) {
	svc, rec := newTestService(fixedFixer())
	sess := startText(t, svc, "guest:a")

	view := sess.View()
	if view.Context != "Agreement Document" {
		t.Fatalf("expected context from file name, got %q", view.Context)
	}
	if view.Notice != analyses.NoticePartial || !strings.Contains(view.Message, "Legal foresight analysis failed: model overloaded") {
		t.Fatalf("unexpected notice/message: %s %q", view.Notice, view.Message)
	}
	if len(view.Items.Clauses) != 1 || len(view.Items.Points) != 2 {
		t.Fatalf("unexpected items: %+v", view.Items)
	}
	if view.Counts[items.StateInitial] != 3 {
		t.Fatalf("unexpected counts: %v", view.Counts)
	}
	if len(rec.OfType(events.AnalysisCompleted)) != 1 {
		t.Fatalf("expected an analysis.completed event")
	}

	u, err := svc.Usage.EnsurePeriod(context.Background(), "guest:a")
	if err != nil || u.Used != 1 {
		t.Fatalf("expected one metered run, got %+v %v", u, err)
	}
}

func TestStartUsesExplicitContext(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	sess, err := svc.Start(context.Background(), StartInput{Owner: "guest:a", Text: "Terms.", Context: "  Lease  "})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Context != "Lease" || sess.Board.Context != "Lease" {
		t.Fatalf("unexpected context %q", sess.Context)
	}
}

func TestStartEnforcesQuota(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	svc.Usage = usage.NewService(usage.Policy{Plan: "Starter", Limit: 1, Window: time.Hour})
	startText(t, svc, "guest:a")

	_, err := svc.Start(context.Background(), StartInput{Owner: "guest:a", Text: "More terms."})
	if !errors.Is(err, usage.ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
}

func TestStartReservesQuotaBeforeAnalysis(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	svc.Usage = usage.NewService(usage.Policy{Plan: "Starter", Limit: 1, Window: time.Hour})
	release := make(chan struct{})
	inner := stubAnalyzer()
	svc.Orchestrator = &analyses.Orchestrator{Provider: analyses.ProviderFunc(func(ctx context.Context, kind analyses.Kind, req analyses.Request) (analyses.Findings, error) {
		<-release
		return inner.Analyze(ctx, kind, req)
	})}

	const starts = 4
	results := make(chan error, starts)
	for i := 0; i < starts; i++ {
		go func() {
			_, err := svc.Start(context.Background(), StartInput{Owner: "guest:a", Text: "Terms."})
			results <- err
		}()
	}

	// Every start but the one holding the reservation is refused while the
	// first analysis is still in flight.
	for i := 0; i < starts-1; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, usage.ErrLimitReached) {
				t.Fatalf("expected ErrLimitReached, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("start %d did not fail fast on an exhausted quota", i)
		}
	}
	close(release)
	if err := <-results; err != nil {
		t.Fatalf("reserved start failed: %v", err)
	}

	u, _ := svc.Usage.EnsurePeriod(context.Background(), "guest:a")
	if u.Used != 1 {
		t.Fatalf("expected exactly one metered run, got %d", u.Used)
	}
}

func TestStartRefundsQuotaWhenAnalysisCannotRun(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	svc.Usage = usage.NewService(usage.Policy{Plan: "Starter", Limit: 1, Window: time.Hour})
	svc.Orchestrator = &analyses.Orchestrator{}

	_, err := svc.Start(context.Background(), StartInput{Owner: "guest:a", Text: "Terms."})
	if !errors.Is(err, analyses.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	u, _ := svc.Usage.EnsurePeriod(context.Background(), "guest:a")
	if u.Used != 0 {
		t.Fatalf("failed start should be refunded, used %d", u.Used)
	}

	svc.Orchestrator = &analyses.Orchestrator{Provider: stubAnalyzer()}
	startText(t, svc, "guest:a")
}

func TestStartRejectsBothPayloads(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	_, err := svc.Start(context.Background(), StartInput{Owner: "guest:a", Text: "x", Data: []byte("y"), FileName: "a.txt"})
	var contractErr *analyses.InputContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("expected InputContractError, got %v", err)
	}
}

func TestStartFromUploadedObject(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	store := localstore.New(t.TempDir())
	svc.Documents = &documents.Service{Store: store}
	obj, err := store.Put(context.Background(), "user:9", "supply agreement.txt", "text/plain", strings.NewReader("The Supplier has unlimited liability."))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	sess, err := svc.Start(context.Background(), StartInput{Owner: "user:9", ObjectKey: obj.Key})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Context != "Agreement Document" || sess.View().ArchiveKey != obj.Key {
		t.Fatalf("unexpected session: context=%q archive=%q", sess.Context, sess.View().ArchiveKey)
	}

	_, err = svc.Start(context.Background(), StartInput{Owner: "user:10", ObjectKey: obj.Key})
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected another owner to be refused, got %v", err)
	}
}

func TestNewAnalysisCreatesNewSession(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	first := startText(t, svc, "guest:a")
	if _, err := svc.Propose(context.Background(), "guest:a", first.ID, fixes.Target{Collection: items.CollectionClauses, ID: first.Board.Snapshot().Clauses[0].ID}); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	second := startText(t, svc, "guest:a")
	if second.ID == first.ID || second.Run.ID == first.Run.ID {
		t.Fatalf("expected a new session and run")
	}
	if second.Board.Snapshot().Clauses[0].State != items.StateInitial {
		t.Fatalf("new session must not inherit item state")
	}
	if first.Board.Snapshot().Clauses[0].State != items.StateProposed {
		t.Fatalf("earlier session must be untouched")
	}
}

func TestGetChecksOwner(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	sess := startText(t, svc, "guest:a")
	if _, err := svc.Get(context.Background(), "guest:b", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "guest:a", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestItemLifecycleThroughService(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	sess := startText(t, svc, "guest:a")
	ctx := context.Background()
	target := fixes.Target{Collection: items.CollectionClauses, ID: sess.Board.Snapshot().Clauses[0].ID}

	set, err := svc.Propose(ctx, "guest:a", sess.ID, target)
	if err != nil || set.Clauses[0].CurrentText != "Replacement: Unlimited liability exposure." {
		t.Fatalf("Propose: %v %+v", err, set.Clauses[0])
	}
	if _, err := svc.Accept(ctx, "guest:a", sess.ID, target); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	set, err = svc.Revert(ctx, "guest:a", sess.ID, target)
	if err != nil || set.Clauses[0].State != items.StateInitial || set.Clauses[0].CurrentText != set.Clauses[0].OriginalText {
		t.Fatalf("Revert: %v %+v", err, set.Clauses[0])
	}
}

func TestAutoFixRejectsConcurrentBatch(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fixer := fixes.ProviderFunc(func(ctx context.Context, req fixes.Request) (fixes.Result, error) {
		once.Do(func() { close(entered) })
		<-release
		return fixes.Result{FixedText: "done"}, nil
	})
	svc, rec := newTestService(fixer)
	sess := startText(t, svc, "guest:a")

	done := make(chan fixes.Summary, 1)
	go func() {
		sum, err := svc.AutoFix(context.Background(), "guest:a", sess.ID, nil)
		if err != nil {
			t.Errorf("AutoFix: %v", err)
		}
		done <- sum
	}()
	<-entered

	if !sess.View().AutoFixRunning {
		t.Fatalf("view should report a running batch")
	}
	if _, err := svc.AutoFix(context.Background(), "guest:a", sess.ID, nil); !errors.Is(err, ErrBatchRunning) {
		t.Fatalf("expected ErrBatchRunning, got %v", err)
	}
	close(release)

	sum := <-done
	if sum.Succeeded != 2 || sum.Failed != 0 || sum.Message != fixes.CompletedMessage {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(rec.OfType(events.AutoFixCompleted)) != 1 {
		t.Fatalf("expected one completion event")
	}
	if sess.View().AutoFixRunning {
		t.Fatalf("batch flag should be cleared")
	}
}

func TestAskUsesSessionDocument(t *testing.T) {
	svc, _ := newTestService(fixedFixer())
	assistant := &recordingAssistant{}
	svc.Assistant = assistant
	sess := startText(t, svc, "guest:a")

	answer, err := svc.Ask(context.Background(), "guest:a", sess.ID, "Who is liable?")
	if err != nil || answer != "Answer to Who is liable?" {
		t.Fatalf("Ask: %q %v", answer, err)
	}
	if assistant.got.Text != "The Supplier has unlimited liability." || assistant.got.Context != "Agreement Document" {
		t.Fatalf("assistant got unexpected document: %+v", assistant.got)
	}
	if _, err := svc.Ask(context.Background(), "guest:a", sess.ID, "  "); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}
}

func TestMemoryRepoExpires(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	live := &Session{ID: "live", ExpiresAt: now.Add(time.Minute)}
	stale := &Session{ID: "stale", ExpiresAt: now.Add(-time.Minute)}
	for _, s := range []*Session{live, stale} {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, err := repo.Get(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale session to be gone, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if n := repo.Sweep(); n != 1 {
		t.Fatalf("expected one swept session, got %d", n)
	}
	if _, err := repo.Get(ctx, "live"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be swept")
	}
}
