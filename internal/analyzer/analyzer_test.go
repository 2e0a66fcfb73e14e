package analyzer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/strrl/dayflow/internal/ai"
	"github.com/strrl/dayflow/internal/db"
	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/parser"
	"github.com/strrl/dayflow/internal/store"
	"github.com/strrl/dayflow/internal/timeline"
)

const testDay = "2026-03-02"

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
	parts   []ai.Part
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return f.GenerateWithMedia(ctx, prompt, nil)
}

func (f *fakeProvider) GenerateWithMedia(_ context.Context, prompt string, parts []ai.Part) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.parts = parts
	return f.reply, f.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func using(p ai.Provider) ProviderFunc {
	return func(context.Context) (ai.Provider, error) { return p, nil }
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "dayflow.db"), store.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *store.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.InsertSample(context.Background(), timeline.Sample{
			CapturedAt:  base.Add(time.Duration(i) * 10 * time.Second),
			MediaRef:    fmt.Sprintf("/media/%02d.jpg", i),
			MediaSize:   10,
			ProcessName: "Code",
			WindowTitle: "main.go",
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func newAnalyzer(s *store.Store, p ProviderFunc, bus *events.Bus) *Analyzer {
	if bus == nil {
		bus = events.NewBus(0)
	}
	return New(s, p,
		WithPublisher(bus),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return base.Add(time.Hour) }),
	)
}

const goodReply = `Sure! {"cards":[
	{"start":"09:00","end":"09:30","title":"Work","summary":" wrote code ","category":"coding"},
	{"start":"bad","end":"09:45","title":"Broken"},
	{"start":"09:30","end":"10:00","title":"Review","summary":"PRs"}
],"daily_summary":"Shipped the parser."}`

func TestAnalyze_NoDataSkipsProvider(t *testing.T) {
	s := openStore(t)
	p := &fakeProvider{reply: goodReply}

	_, err := newAnalyzer(s, using(p), events.NewBus(0)).Analyze(context.Background(), testDay)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if p.callCount() != 0 {
		t.Errorf("provider called %d times", p.callCount())
	}
}

func TestAnalyze_FallbackWithoutProvider(t *testing.T) {
	s := openStore(t)
	seed(t, s, 3)

	out, err := newAnalyzer(s, nil, events.NewBus(0)).Analyze(context.Background(), testDay)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.Mode != ModeFallback {
		t.Errorf("Mode = %q, want fallback", out.Mode)
	}
	if len(out.Segments) != 1 || out.Segments[0].SampleCount != 3 || out.Segments[0].DurationSeconds != 30 {
		t.Errorf("Segments = %+v", out.Segments)
	}
	batches, _ := s.BatchesForDay(context.Background(), testDay)
	if len(batches) != 0 {
		t.Errorf("fallback created %d batches", len(batches))
	}
}

func TestAnalyze_ReplacesCards(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seed(t, s, 45)
	bus := events.NewBus(0)
	p := &fakeProvider{reply: goodReply}

	out, err := newAnalyzer(s, using(p), bus).Analyze(ctx, testDay)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.Mode != ModeAI || len(out.Cards) != 2 || out.Dropped != 1 {
		t.Fatalf("Outcome = %+v", out)
	}

	cards, _ := s.CardsForDay(ctx, testDay)
	if len(cards) != 2 {
		t.Fatalf("stored %d cards, want 2", len(cards))
	}
	if cards[0].Title != "Work" || cards[0].Category != timeline.CategoryCoding || cards[0].Summary != "wrote code" {
		t.Errorf("card 0 = %+v", cards[0])
	}
	if cards[1].Category != timeline.CategoryOther {
		t.Errorf("missing category = %q, want Other", cards[1].Category)
	}
	if summary, _ := s.DailySummary(ctx, testDay); summary != "Shipped the parser." {
		t.Errorf("summary = %q", summary)
	}

	batch, _ := s.Batch(ctx, out.BatchID)
	if batch == nil || batch.Status != timeline.BatchCompleted || batch.SampleCount != 45 {
		t.Errorf("batch = %+v", batch)
	}

	if len(p.parts) != MaxSamples {
		t.Fatalf("sent %d parts, want %d", len(p.parts), MaxSamples)
	}
	if p.parts[0].MediaPath != "/media/00.jpg" || p.parts[MaxSamples-1].MediaPath != "/media/44.jpg" {
		t.Errorf("first/last parts = %s, %s", p.parts[0].MediaPath, p.parts[MaxSamples-1].MediaPath)
	}
	if p.parts[0].Context != "Timestamp=09:00:00, App=Code, Window=main.go" || p.parts[0].MIMEType != "image/jpeg" {
		t.Errorf("part 0 = %+v", p.parts[0])
	}
	if !strings.Contains(p.prompts[0], "Date: "+testDay) {
		t.Error("prompt missing date")
	}

	evs := bus.Drain()
	if len(evs) != 1 {
		t.Fatalf("events = %d, want 1", len(evs))
	}
	done, ok := evs[0].(events.AnalysisDone)
	if !ok || done.Cards != 2 || done.Dropped != 1 || done.BatchID != out.BatchID {
		t.Errorf("event = %#v", evs[0])
	}
}

func TestAnalyze_FailuresKeepPriorCards(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		err    error
		wantIs []error
	}{
		{"provider error", "", &ai.ProviderError{Provider: "fake", Status: 500}, []error{ai.ErrProvider}},
		{"invalid json", "I could not help with that.", nil, []error{ai.ErrProvider, parser.ErrInvalidResponse}},
		{"no valid cards", `{"cards":[{"start":"25:00","end":"26:00","title":"x"}]}`, nil, []error{ErrNoValidCards}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := openStore(t)
			seed(t, s, 3)
			prior := []timeline.Card{{Start: "08:00", End: "08:30", Title: "Prior", Category: timeline.CategoryAdmin}}
			if err := s.ReplaceCardsForDay(ctx, testDay, "old", prior, "before"); err != nil {
				t.Fatalf("seed cards: %v", err)
			}

			bus := events.NewBus(0)
			out, err := newAnalyzer(s, using(&fakeProvider{reply: tt.reply, err: tt.err}), bus).Analyze(ctx, testDay)
			for _, target := range tt.wantIs {
				if !errors.Is(err, target) {
					t.Errorf("err = %v, want Is %v", err, target)
				}
			}

			cards, _ := s.CardsForDay(ctx, testDay)
			if len(cards) != 1 || cards[0].Title != "Prior" {
				t.Errorf("cards = %+v, want prior set", cards)
			}
			if summary, _ := s.DailySummary(ctx, testDay); summary != "before" {
				t.Errorf("summary = %q", summary)
			}

			batch, _ := s.Batch(ctx, out.BatchID)
			if batch == nil || batch.Status != timeline.BatchFailed || batch.Error == "" {
				t.Errorf("batch = %+v, want failed with message", batch)
			}

			evs := bus.Drain()
			if len(evs) != 1 {
				t.Fatalf("events = %d, want 1", len(evs))
			}
			if _, ok := evs[0].(events.AnalysisFailed); !ok {
				t.Errorf("event = %#v, want AnalysisFailed", evs[0])
			}
		})
	}
}

func TestAnalyze_ConfigErrorCreatesNoBatch(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seed(t, s, 2)
	broken := func(context.Context) (ai.Provider, error) { return nil, errors.New("model is required") }

	if _, err := newAnalyzer(s, broken, events.NewBus(0)).Analyze(ctx, testDay); err == nil {
		t.Fatal("expected error")
	}
	if batches, _ := s.BatchesForDay(ctx, testDay); len(batches) != 0 {
		t.Errorf("batches = %d, want 0", len(batches))
	}
}

func TestDownsample(t *testing.T) {
	mk := func(n int) []timeline.Sample {
		out := make([]timeline.Sample, n)
		for i := range out {
			out[i].ID = int64(i)
		}
		return out
	}

	small := Downsample(mk(5), 20)
	if len(small) != 5 {
		t.Errorf("len = %d, want 5", len(small))
	}

	got := Downsample(mk(45), 20)
	if len(got) != 20 {
		t.Fatalf("len = %d, want 20", len(got))
	}
	if got[0].ID != 0 || got[1].ID != 2 || got[18].ID != 36 || got[19].ID != 44 {
		t.Errorf("picked ids %d %d %d %d", got[0].ID, got[1].ID, got[18].ID, got[19].ID)
	}

	if got := Downsample(mk(21), 20); got[19].ID != 20 || got[18].ID != 18 {
		t.Errorf("stride 1 tail = %d %d", got[18].ID, got[19].ID)
	}
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seed(t, s, 3)
	cards := []timeline.Card{{Start: "09:00", End: "09:30", Title: "Parser work", Summary: "tests", Category: timeline.CategoryCoding}}
	if err := s.ReplaceCardsForDay(ctx, testDay, "b1", cards, "Good day"); err != nil {
		t.Fatalf("seed cards: %v", err)
	}

	p := &fakeProvider{reply: "  You mostly coded.  "}
	answer, err := newAnalyzer(s, using(p), nil).Ask(ctx, testDay, "What did I do?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "You mostly coded." {
		t.Errorf("answer = %q", answer)
	}

	prompt := p.prompts[0]
	for _, want := range []string{
		"Existing daily summary: Good day",
		"- 2026-03-02 09:00-09:30 [Coding] Parser work: tests",
		"- 09:00-09:00 Code | main.go (30s)",
		"User question: What did I do?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestAsk_RejectsEmptyQuestion(t *testing.T) {
	p := &fakeProvider{reply: "x"}
	_, err := newAnalyzer(openStore(t), using(p), nil).Ask(context.Background(), testDay, "   ")
	if !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v, want ErrEmptyQuestion", err)
	}
	if p.callCount() != 0 {
		t.Error("provider called for empty question")
	}
}

func TestAsk_EmptyAnswerIsProviderError(t *testing.T) {
	p := &fakeProvider{reply: "   "}
	_, err := newAnalyzer(openStore(t), using(p), nil).Ask(context.Background(), testDay, "why?")
	if !errors.Is(err, ai.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}
