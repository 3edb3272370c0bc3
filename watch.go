package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/trever9122/Inspection-app/metrics"
	"github.com/trever9122/Inspection-app/store"
	"github.com/trever9122/Inspection-app/thumbs"
)

const (
	inboxRetryWindow   = 30 * time.Second
	inboxRetryInterval = time.Second
)

// watchInbox imports photos dropped under <inbox>/<session>/<room>/<item>/.
// Files present at startup are imported first, so photos that arrived
// while the service was down are not lost.
func (s *server) watchInbox(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("inbox watcher disabled: %v", err)
		return
	}
	defer watcher.Close()

	if err := s.rescanInbox(ctx, watcher); err != nil {
		log.Printf("inbox rescan: %v", err)
	}

	log.Printf("watching %s for inbox photos", s.cfg.InboxDir)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			info, err := os.Stat(evt.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := watcher.Add(evt.Name); err != nil {
					log.Printf("watch add %s: %v", evt.Name, err)
				}
				continue
			}
			s.importInboxFile(ctx, evt.Name)
		case err := <-watcher.Errors:
			log.Printf("inbox watch error: %v", err)
		}
	}
}

// rescanInbox walks the tree, registering watches for every directory and
// importing files already on disk.
func (s *server) rescanInbox(ctx context.Context, watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(s.cfg.InboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		s.importInboxFile(ctx, path)
		return nil
	})
}

// importInboxFile registers one dropped photo and queues its item for
// analysis. The source file is removed once stored.
func (s *server) importInboxFile(ctx context.Context, path string) {
	rel, err := filepath.Rel(s.cfg.InboxDir, path)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 {
		log.Printf("inbox file %s ignored: want <session>/<room>/<item>/<file>", rel)
		return
	}
	sessionID, roomName, itemName, filename := parts[0], parts[1], parts[2], parts[3]
	if strings.HasPrefix(filename, ".") {
		return
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedPhotoExtensions[ext]; !ok {
		log.Printf("inbox file %s ignored: unsupported type %q", rel, ext)
		return
	}

	if _, err := s.st.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("inbox file %s ignored: unknown session %s", rel, sessionID)
			return
		}
		log.Printf("inbox session lookup: %v", err)
		return
	}

	itemID, err := s.storeInboxPhoto(ctx, sessionID, roomName, itemName, filename, path)
	if err != nil {
		log.Printf("inbox import %s failed: %v", rel, err)
		return
	}
	metrics.InboxImported()
	log.Printf("inbox imported %s", rel)

	job := s.analysisJob(itemID, "inbox")
	if enqueued, droppedFull := s.q.EnqueueWithRetry(ctx, job, inboxRetryWindow, inboxRetryInterval); !enqueued {
		if droppedFull {
			log.Printf("inbox analysis for item %d dropped: queue full", itemID)
		}
	}
}

func (s *server) storeInboxPhoto(ctx context.Context, sessionID, roomName, itemName, filename, path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("empty file")
	}

	room, err := s.st.UpsertRoom(ctx, sessionID, roomName)
	if err != nil {
		return 0, err
	}
	item, err := s.st.UpsertItem(ctx, room.ID, itemName)
	if err != nil {
		return 0, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	storedName := uuid.NewString() + ext
	storedPath := filepath.Join(s.cfg.PhotosDir, storedName)
	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		return 0, err
	}

	thumbName := strings.TrimSuffix(storedName, ext) + "_thumb.jpg"
	if err := thumbs.Generate(storedPath, filepath.Join(s.cfg.PhotosDir, thumbName), s.cfg.ThumbMaxPx); err != nil {
		log.Printf("thumbnail for %s failed: %v", filename, err)
		thumbName = ""
	}

	_, err = s.st.InsertPhoto(ctx, &store.Photo{
		ItemID:     item.ID,
		Filename:   filename,
		StoredPath: storedName,
		ThumbPath:  thumbName,
		SizeBytes:  int64(len(data)),
		Hash:       fmt.Sprintf("%x", sha256.Sum256(data)),
	})
	if err != nil {
		return 0, err
	}
	if err := os.Remove(path); err != nil {
		log.Printf("remove inbox file %s: %v", path, err)
	}
	return item.ID, nil
}
