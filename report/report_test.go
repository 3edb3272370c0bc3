package report

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/trever9122/Inspection-app/store"
)

func seedSession(t *testing.T) (*store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "sess-1", "12 Elm St", "Jordan")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	kitchen, _ := st.UpsertRoom(ctx, sess.ID, "Kitchen")
	bath, _ := st.UpsertRoom(ctx, sess.ID, "Bathroom")

	ceiling, _ := st.UpsertItem(ctx, kitchen.ID, "Ceiling")
	_ = st.UpdateItemResult(ctx, ceiling.ID, "Poor", "- Visible damage on the ceiling (crack); repair recommended.")
	p, _ := st.InsertPhoto(ctx, &store.Photo{ItemID: ceiling.ID, Filename: "a.jpg", StoredPath: "photos/a.jpg"})
	_ = st.UpdatePhotoAnalysis(ctx, p.ID, "", "[]", "Poor", "x")

	sink, _ := st.UpsertItem(ctx, bath.ID, "Sink")
	_ = st.UpdateItemResult(ctx, sink.ID, "Good", "- The sink appears clean and well-maintained.")

	return st, sess.ID
}

func TestBuildOrdersRoomsAndCounts(t *testing.T) {
	st, sessID := seedSession(t)
	rep, err := Build(context.Background(), st, sessID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rep.Property != "12 Elm St" || rep.Inspector != "Jordan" {
		t.Fatalf("unexpected header fields: %+v", rep)
	}
	if len(rep.Rooms) != 2 || rep.Rooms[0].Name != "Kitchen" || rep.Rooms[1].Name != "Bathroom" {
		t.Fatalf("unexpected room order: %+v", rep.Rooms)
	}
	if rep.Rooms[0].Items[0].PhotoCount != 1 {
		t.Fatalf("photo count = %d", rep.Rooms[0].Items[0].PhotoCount)
	}
	if rep.Summary.Items != 2 || rep.Summary.Good != 1 || rep.Summary.Poor != 1 {
		t.Fatalf("unexpected summary: %+v", rep.Summary)
	}
}

func TestBuildCoercesUnknownCondition(t *testing.T) {
	st, sessID := seedSession(t)
	ctx := context.Background()
	rooms, _ := st.ListRooms(ctx, sessID)
	items, _ := st.ListItems(ctx, rooms[1].ID)
	if err := st.UpdateItemResult(ctx, items[0].ID, "excellent", "looks great"); err != nil {
		t.Fatalf("UpdateItemResult: %v", err)
	}

	rep, err := Build(ctx, st, sessID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := rep.Rooms[1].Items[0].Condition; got != "Fair" {
		t.Fatalf("unknown condition rendered as %q, want Fair", got)
	}
	if rep.Summary.Fair != 1 {
		t.Fatalf("summary should count coerced item as fair: %+v", rep.Summary)
	}
}

func TestBuildMissingSession(t *testing.T) {
	st, _ := seedSession(t)
	if _, err := Build(context.Background(), st, "nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildTextLayout(t *testing.T) {
	rep := &Report{
		SessionID:   "sess-1",
		Property:    "12 Elm St",
		Inspector:   "Jordan",
		GeneratedAt: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
		Rooms: []RoomView{
			{Name: "Kitchen", Items: []ItemView{
				{Name: "Ceiling", Condition: "Poor", Note: "- Visible damage on the ceiling (crack); repair recommended.", PhotoCount: 2},
			}},
			{Name: "Bathroom"},
		},
		Summary: Summary{Items: 1, Poor: 1},
	}
	got := BuildText(rep)
	want := strings.Join([]string{
		"Inspection Report – 12 Elm St",
		"Inspector: Jordan",
		"Generated: 2026-05-04 09:30:00",
		"",
		"== Kitchen ==",
		"Ceiling [Poor] (2 photos)",
		"- Visible damage on the ceiling (crack); repair recommended.",
		"",
		"== Bathroom ==",
		"(no items)",
		"",
		"Summary: 1 items – 0 good, 0 fair, 1 poor",
	}, "\n")
	if got != want {
		t.Fatalf("report text mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestBuildTextEmptySession(t *testing.T) {
	rep := &Report{Property: "12 Elm St", GeneratedAt: time.Now()}
	got := BuildText(rep)
	if !strings.Contains(got, "No rooms recorded.") {
		t.Fatalf("empty session text missing placeholder:\n%s", got)
	}
	if !strings.Contains(got, "Inspector: Not recorded") {
		t.Fatalf("missing inspector fallback:\n%s", got)
	}
}
