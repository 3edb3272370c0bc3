package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/trever9122/Inspection-app/condition"
	"github.com/trever9122/Inspection-app/metrics"
	"github.com/trever9122/Inspection-app/queue"
	"github.com/trever9122/Inspection-app/store"
	"github.com/trever9122/Inspection-app/thumbs"
)

var allowedPhotoExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {},
}

func mimeForExt(ext string) string {
	if strings.EqualFold(ext, ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

// savePhotoUpload stores one uploaded file under the photos dir, renders
// its thumbnail and inserts the photo row in queued state.
func (s *server) savePhotoUpload(ctx context.Context, itemID int64, fh *multipart.FileHeader) (*store.Photo, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedPhotoExtensions[ext]; !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload")
	}

	storedName := uuid.NewString() + ext
	storedPath := filepath.Join(s.cfg.PhotosDir, storedName)
	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		return nil, err
	}

	thumbName := strings.TrimSuffix(storedName, ext) + "_thumb.jpg"
	thumbPath := filepath.Join(s.cfg.PhotosDir, thumbName)
	if err := thumbs.Generate(storedPath, thumbPath, s.cfg.ThumbMaxPx); err != nil {
		log.Printf("thumbnail for %s failed: %v", fh.Filename, err)
		thumbName = ""
	}

	return s.st.InsertPhoto(ctx, &store.Photo{
		ItemID:     itemID,
		Filename:   fh.Filename,
		StoredPath: storedName,
		ThumbPath:  thumbName,
		SizeBytes:  int64(len(data)),
		Hash:       fmt.Sprintf("%x", sha256.Sum256(data)),
	})
}

func (s *server) analysisJob(itemID int64, source string) queue.Job {
	return queue.Job{
		ID:     fmt.Sprintf("item-%d", itemID),
		Source: source,
		Work: func(ctx context.Context) error {
			return s.analyzeItem(ctx, itemID)
		},
	}
}

func (s *server) enqueueItemAnalysis(itemID int64, source string) bool {
	return s.q.Enqueue(s.analysisJob(itemID, source))
}

// analyzeItem walks every photo of the item through the vision provider.
// A failed photo is marked and skipped; the merged verdict is written to
// the item only when at least one photo produced a result.
func (s *server) analyzeItem(ctx context.Context, itemID int64) error {
	item, err := s.st.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load item %d: %w", itemID, err)
	}
	photos, err := s.st.ListPhotos(ctx, itemID)
	if err != nil {
		return fmt.Errorf("list photos for item %d: %w", itemID, err)
	}
	if len(photos) == 0 {
		return nil
	}

	var results []condition.Result
	for _, photo := range photos {
		result, err := s.analyzePhoto(ctx, item, photo)
		if err != nil {
			log.Printf("photo %d (%s) analysis failed: %v", photo.ID, photo.Filename, err)
			_ = s.st.MarkPhotoError(ctx, photo.ID, err.Error())
			metrics.PhotoFailed()
			continue
		}
		metrics.PhotoAnalyzed()
		results = append(results, result)
	}

	if len(results) == 0 {
		return fmt.Errorf("item %d: no photo analyzed", itemID)
	}
	merged := condition.Merge(results, item.Name)
	if err := s.st.UpdateItemResult(ctx, item.ID, merged.Condition.String(), merged.Note); err != nil {
		return fmt.Errorf("write merged result for item %d: %w", itemID, err)
	}
	log.Printf("item %d (%s) analyzed: %d/%d photos, condition=%s", item.ID, item.Name, len(results), len(photos), merged.Condition)
	return nil
}

func (s *server) analyzePhoto(ctx context.Context, item *store.Item, photo store.Photo) (condition.Result, error) {
	if err := s.st.MarkPhotoProcessing(ctx, photo.ID); err != nil {
		return condition.Result{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.PhotosDir, photo.StoredPath))
	if err != nil {
		return condition.Result{}, err
	}

	analysis, err := s.source.Analyze(ctx, data, mimeForExt(filepath.Ext(photo.StoredPath)))
	if err != nil {
		return condition.Result{}, err
	}

	result := s.vocab.Classify(analysis.Tags, analysis.Caption, item.Name)
	tagsJSON, _ := json.Marshal(analysis.Tags)
	if err := s.st.UpdatePhotoAnalysis(ctx, photo.ID, analysis.Caption, string(tagsJSON), result.Condition.String(), result.Note); err != nil {
		return condition.Result{}, err
	}
	return result, nil
}
