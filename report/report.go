// Package report renders an inspection session as text or JSON.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trever9122/Inspection-app/condition"
	"github.com/trever9122/Inspection-app/store"
)

// ItemView is the report-facing view of an inspected item.
type ItemView struct {
	Name       string `json:"name"`
	Condition  string `json:"condition"`
	Note       string `json:"note"`
	PhotoCount int    `json:"photo_count"`
}

// RoomView groups items under a room heading.
type RoomView struct {
	Name  string     `json:"name"`
	Items []ItemView `json:"items"`
}

// Summary counts items per condition bucket.
type Summary struct {
	Items int `json:"items"`
	Good  int `json:"good"`
	Fair  int `json:"fair"`
	Poor  int `json:"poor"`
}

// Report is the complete session view used by both output formats.
type Report struct {
	SessionID   string     `json:"session_id"`
	Property    string     `json:"property"`
	Inspector   string     `json:"inspector"`
	GeneratedAt time.Time  `json:"generated_at"`
	Rooms       []RoomView `json:"rooms"`
	Summary     Summary    `json:"summary"`
}

// Build assembles a report for a session, rooms in their sort order.
func Build(ctx context.Context, st *store.Store, sessionID string) (*Report, error) {
	sess, err := st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rooms, err := st.ListRooms(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		SessionID:   sess.ID,
		Property:    sess.Property,
		Inspector:   sess.Inspector,
		GeneratedAt: time.Now().UTC(),
	}
	for _, room := range rooms {
		items, err := st.ListItems(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		view := RoomView{Name: room.Name}
		for _, item := range items {
			photos, err := st.ListPhotos(ctx, item.ID)
			if err != nil {
				return nil, err
			}
			level := condition.ParseLevel(item.Condition)
			view.Items = append(view.Items, ItemView{
				Name:       item.Name,
				Condition:  level.String(),
				Note:       item.Note,
				PhotoCount: len(photos),
			})
			rep.Summary.Items++
			switch level {
			case condition.Good:
				rep.Summary.Good++
			case condition.Fair:
				rep.Summary.Fair++
			default:
				rep.Summary.Poor++
			}
		}
		rep.Rooms = append(rep.Rooms, view)
	}
	return rep, nil
}

// BuildText renders the plain-text report body.
func BuildText(rep *Report) string {
	inspector := strings.TrimSpace(rep.Inspector)
	if inspector == "" {
		inspector = "Not recorded"
	}

	lines := []string{
		fmt.Sprintf("Inspection Report – %s", rep.Property),
		fmt.Sprintf("Inspector: %s", inspector),
		fmt.Sprintf("Generated: %s", rep.GeneratedAt.Format("2006-01-02 15:04:05")),
	}

	if len(rep.Rooms) == 0 {
		lines = append(lines, "", "No rooms recorded.")
	}
	for _, room := range rep.Rooms {
		lines = append(lines, "", fmt.Sprintf("== %s ==", room.Name))
		if len(room.Items) == 0 {
			lines = append(lines, "(no items)")
			continue
		}
		for _, item := range room.Items {
			lines = append(lines, fmt.Sprintf("%s [%s] (%s)", item.Name, item.Condition, photoCountLabel(item.PhotoCount)))
			note := strings.TrimSpace(item.Note)
			if note == "" {
				note = "Pending analysis."
			}
			lines = append(lines, note)
		}
	}

	lines = append(lines, "",
		fmt.Sprintf("Summary: %d items – %d good, %d fair, %d poor",
			rep.Summary.Items, rep.Summary.Good, rep.Summary.Fair, rep.Summary.Poor))

	return strings.Join(lines, "\n")
}

func photoCountLabel(n int) string {
	if n == 1 {
		return "1 photo"
	}
	return fmt.Sprintf("%d photos", n)
}
