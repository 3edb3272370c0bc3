package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/trever9122/Inspection-app/condition"
	"github.com/trever9122/Inspection-app/metrics"
	"github.com/trever9122/Inspection-app/report"
	"github.com/trever9122/Inspection-app/store"
)

func (s *server) photoURL(storedName string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	return base + "/photos/" + storedName
}

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.st.ListSessions(r.Context())
		if err != nil {
			http.Error(w, "list error", http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []store.Session{}
		}
		respondJSON(w, sessions)
	case http.MethodPost:
		var payload struct {
			Property  string `json:"property"`
			Inspector string `json:"inspector"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		payload.Property = strings.TrimSpace(payload.Property)
		if payload.Property == "" {
			http.Error(w, "property required", http.StatusBadRequest)
			return
		}
		sess, err := s.st.CreateSession(r.Context(), uuid.NewString(), payload.Property, strings.TrimSpace(payload.Inspector))
		if err != nil {
			http.Error(w, "create error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		respondJSON(w, sess)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSession routes everything under /api/sessions/{id}/...
func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	sessionID := parts[0]
	rest := parts[1:]

	sess, err := s.st.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}

	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.renderSession(w, r, sess)
	case len(rest) == 1 && rest[0] == "rooms":
		s.handleRooms(w, r, sess)
	case len(rest) == 2 && rest[0] == "rooms" && rest[1] == "reorder":
		s.handleReorder(w, r, sess)
	case len(rest) == 1 && rest[0] == "report":
		s.handleReport(w, r, sess)
	case len(rest) >= 4 && rest[0] == "rooms" && rest[2] == "items":
		roomName, err1 := url.PathUnescape(rest[1])
		itemName, err2 := url.PathUnescape(rest[3])
		if err1 != nil || err2 != nil || roomName == "" || itemName == "" {
			http.NotFound(w, r)
			return
		}
		tail := rest[4:]
		switch {
		case len(tail) == 0:
			s.handleItem(w, r, sess, roomName, itemName)
		case len(tail) == 1 && tail[0] == "photos":
			s.handlePhotoUpload(w, r, sess, roomName, itemName)
		case len(tail) == 1 && tail[0] == "analyze":
			s.handleAnalyze(w, r, sess, roomName, itemName)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *server) renderSession(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	rooms, err := s.st.ListRooms(r.Context(), sess.ID)
	if err != nil {
		http.Error(w, "rooms error", http.StatusInternalServerError)
		return
	}
	type roomView struct {
		store.Room
		Items []store.Item `json:"items"`
	}
	views := []roomView{}
	for _, room := range rooms {
		items, err := s.st.ListItems(r.Context(), room.ID)
		if err != nil {
			http.Error(w, "items error", http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []store.Item{}
		}
		views = append(views, roomView{Room: room, Items: items})
	}
	respondJSON(w, map[string]interface{}{
		"session": sess,
		"rooms":   views,
	})
}

func (s *server) handleRooms(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	switch r.Method {
	case http.MethodGet:
		rooms, err := s.st.ListRooms(r.Context(), sess.ID)
		if err != nil {
			http.Error(w, "rooms error", http.StatusInternalServerError)
			return
		}
		if rooms == nil {
			rooms = []store.Room{}
		}
		respondJSON(w, rooms)
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		payload.Name = strings.TrimSpace(payload.Name)
		if payload.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		room, err := s.st.UpsertRoom(r.Context(), sess.ID, payload.Name)
		if err != nil {
			http.Error(w, "room error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		respondJSON(w, room)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) handleReorder(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Order []int64 `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := s.st.ReorderRooms(r.Context(), sess.ID, payload.Order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rooms, err := s.st.ListRooms(r.Context(), sess.ID)
	if err != nil {
		http.Error(w, "rooms error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, rooms)
}

func (s *server) handleItem(w http.ResponseWriter, r *http.Request, sess *store.Session, roomName, itemName string) {
	switch r.Method {
	case http.MethodGet:
		item, photos, err := s.lookupItem(r.Context(), sess.ID, roomName, itemName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "item error", http.StatusInternalServerError)
			return
		}
		if photos == nil {
			photos = []store.Photo{}
		}
		urls := make([]string, 0, len(photos))
		for _, p := range photos {
			urls = append(urls, s.photoURL(p.StoredPath))
		}
		respondJSON(w, map[string]interface{}{
			"item":       item,
			"photos":     photos,
			"photo_urls": urls,
		})
	case http.MethodPost:
		var payload struct {
			Condition string `json:"condition"`
			Note      string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		room, err := s.st.UpsertRoom(r.Context(), sess.ID, roomName)
		if err != nil {
			http.Error(w, "room error", http.StatusInternalServerError)
			return
		}
		item, err := s.st.UpsertItem(r.Context(), room.ID, itemName)
		if err != nil {
			http.Error(w, "item error", http.StatusInternalServerError)
			return
		}
		level := condition.ParseLevel(payload.Condition)
		if err := s.st.UpdateItemResult(r.Context(), item.ID, level.String(), strings.TrimSpace(payload.Note)); err != nil {
			http.Error(w, "item error", http.StatusInternalServerError)
			return
		}
		updated, err := s.st.GetItem(r.Context(), item.ID)
		if err != nil {
			http.Error(w, "item error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, updated)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) lookupItem(ctx context.Context, sessionID, roomName, itemName string) (*store.Item, []store.Photo, error) {
	rooms, err := s.st.ListRooms(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	for _, room := range rooms {
		if room.Name != roomName {
			continue
		}
		items, err := s.st.ListItems(ctx, room.ID)
		if err != nil {
			return nil, nil, err
		}
		for i := range items {
			if items[i].Name == itemName {
				photos, err := s.st.ListPhotos(ctx, items[i].ID)
				if err != nil {
					return nil, nil, err
				}
				return &items[i], photos, nil
			}
		}
	}
	return nil, nil, store.ErrNotFound
}

func (s *server) handlePhotoUpload(w http.ResponseWriter, r *http.Request, sess *store.Session, roomName, itemName string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad multipart form", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		files = r.MultipartForm.File["photo"]
	}
	if len(files) == 0 {
		http.Error(w, "no photos in form", http.StatusBadRequest)
		return
	}

	room, err := s.st.UpsertRoom(r.Context(), sess.ID, roomName)
	if err != nil {
		http.Error(w, "room error", http.StatusInternalServerError)
		return
	}
	item, err := s.st.UpsertItem(r.Context(), room.ID, itemName)
	if err != nil {
		http.Error(w, "item error", http.StatusInternalServerError)
		return
	}

	saved := []store.Photo{}
	for _, fh := range files {
		photo, err := s.savePhotoUpload(r.Context(), item.ID, fh)
		if err != nil {
			log.Printf("photo upload %s failed: %v", fh.Filename, err)
			http.Error(w, fmt.Sprintf("upload %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		metrics.UploadAccepted()
		saved = append(saved, *photo)
	}

	queued := s.enqueueItemAnalysis(item.ID, "upload")
	w.WriteHeader(http.StatusAccepted)
	respondJSON(w, map[string]interface{}{
		"item":   item,
		"photos": saved,
		"queued": queued,
	})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request, sess *store.Session, roomName, itemName string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	item, photos, err := s.lookupItem(r.Context(), sess.ID, roomName, itemName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "item error", http.StatusInternalServerError)
		return
	}
	if len(photos) == 0 {
		http.Error(w, "no photos to analyze", http.StatusConflict)
		return
	}
	if !s.enqueueItemAnalysis(item.ID, "reanalyze") {
		http.Error(w, "analysis queue full", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	respondJSON(w, map[string]interface{}{"status": "queued", "item_id": item.ID})
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rep, err := report.Build(r.Context(), s.st, sess.ID)
	if err != nil {
		http.Error(w, "report error", http.StatusInternalServerError)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		respondJSON(w, rep)
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"inspection-%s.txt\"", sess.ID))
		_, _ = w.Write([]byte(report.BuildText(rep)))
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
	}
}

func (s *server) handlePhotoFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/photos/")
	if path == "" {
		http.NotFound(w, r)
		return
	}
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") || cleaned == "." || filepath.IsAbs(cleaned) {
		http.NotFound(w, r)
		return
	}
	sourcePath := filepath.Join(s.cfg.PhotosDir, cleaned)
	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, sourcePath)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.st.Health(r.Context()); err != nil {
		http.Error(w, "store unhealthy", http.StatusServiceUnavailable)
		return
	}
	if !s.q.Healthy() {
		http.Error(w, "queue not running", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.st.CountAll(r.Context())
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]interface{}{
		"provider": s.source.Name(),
		"queue":    s.q.Stats(),
		"store":    counts,
		"metrics":  metrics.Current(),
	})
}
