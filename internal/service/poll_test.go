package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
	"unicode/utf8"

	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"
)

func screeningsFrom(start time.Time, n int) []model.Screening {
	out := make([]model.Screening, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Screening{
			ExternalEventID: fmt.Sprintf("ev-%02d", i),
			Location:        "Schiffbau",
			StartTime:       start.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	return out
}

func TestBuildPollsChunks(t *testing.T) {
	polls := BuildPolls("Hamlet", screeningsFrom(reconcileNow.Add(time.Hour), 25), reconcileNow, time.UTC)
	if len(polls) != 3 {
		t.Fatalf("polls = %d, want 3", len(polls))
	}
	wantSizes := []int{10, 10, 5}
	wantTitles := []string{"Hamlet 0/2", "Hamlet 1/2", "Hamlet 2/2"}
	for i, p := range polls {
		if len(p.Options) != wantSizes[i] {
			t.Errorf("poll %d has %d options, want %d", i, len(p.Options), wantSizes[i])
		}
		if p.Title != wantTitles[i] {
			t.Errorf("poll %d title = %q, want %q", i, p.Title, wantTitles[i])
		}
		if !p.MultipleAnswers || p.Anonymous {
			t.Errorf("poll %d should be multi-answer and non-anonymous", i)
		}
	}
	if polls[0].Options[0] != "01.01.2030 13:00 Schiffbau" {
		t.Errorf("first option = %q", polls[0].Options[0])
	}
}

func TestBuildPollsSingleChunkKeepsTitle(t *testing.T) {
	polls := BuildPolls("Hamlet", screeningsFrom(reconcileNow.Add(time.Hour), 10), reconcileNow, time.UTC)
	if len(polls) != 1 || polls[0].Title != "Hamlet" {
		t.Fatalf("polls = %+v", polls)
	}
}

func TestBuildPollsSkipsPast(t *testing.T) {
	// 5 场在过去，3 场在未来
	all := screeningsFrom(reconcileNow.Add(-5*24*time.Hour+time.Hour), 8)
	polls := BuildPolls("Hamlet", all, reconcileNow, time.UTC)
	if len(polls) != 1 || len(polls[0].Options) != 3 {
		t.Fatalf("polls = %+v", polls)
	}
	if BuildPolls("Hamlet", all[:5], reconcileNow, time.UTC) != nil {
		t.Error("only past screenings should yield no polls")
	}
}

func TestBuildPollsTruncatesOptions(t *testing.T) {
	s := screeningsFrom(reconcileNow.Add(time.Hour), 1)
	s[0].Location = "Ein sehr langer Spielort mit noch viel mehr Worten dahinter"
	polls := BuildPolls("X", s, reconcileNow, time.UTC)
	if n := utf8.RuneCountInString(polls[0].Options[0]); n != MaxPollAnswerRunes {
		t.Errorf("option length = %d", n)
	}
}

func TestSendPolls(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	if err := r.chats.PutChat(ctx, model.Chat{ID: "c1"}); err != nil {
		t.Fatal(err)
	}
	show := model.ShowWithScreenings{Show: model.Show{URL: "/h", Name: "Hamlet"}, Screenings: screeningsFrom(reconcileNow.Add(time.Hour), 12)}
	stored, err := r.shows.UpsertShowWithScreenings(ctx, show)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.topics.UpsertTopic(ctx, model.Topic{ChatID: "c1", ThreadID: "t1", ShowID: stored.ID}); err != nil {
		t.Fatal(err)
	}

	p := newFakePlatform(model.ChatKindText)
	svc := NewPollService(p, r.topics, time.UTC, quietLogger())
	svc.now = func() time.Time { return reconcileNow }

	ids, err := svc.SendPolls(ctx, "c1", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || len(p.polls) != 2 {
		t.Fatalf("ids=%v polls=%d", ids, len(p.polls))
	}
	if p.polls[1].Title != "Hamlet 1/1" || len(p.polls[1].Options) != 2 {
		t.Errorf("second poll = %+v", p.polls[1])
	}

	if _, err := svc.SendPolls(ctx, "c1", "nope"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("unknown thread err = %v", err)
	}
}
