// Package memstore keeps every repository table in process memory.
// It backs STORE_MODE=memory and the handler tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/fedutinova/vidshelf/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	nextID      int64
	videos      map[string]*models.Video
	transcripts map[string]*models.Transcript
	chunks      map[string][]models.TranscriptChunk
	jobs        map[uuid.UUID]*job.Job

	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		videos:      make(map[string]*models.Video),
		transcripts: make(map[string]*models.Transcript),
		chunks:      make(map[string][]models.TranscriptChunk),
		jobs:        make(map[uuid.UUID]*job.Job),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Jobs

func (s *Store) CreateJob(ctx context.Context, targetID string, kind job.Kind) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[targetID]; !ok {
		return nil, common.ErrVideoNotFound
	}
	if s.activeJobLocked(targetID, kind) != nil {
		return nil, common.ErrJobActive
	}
	j := &job.Job{
		ID:        uuid.New(),
		TargetID:  targetID,
		Kind:      kind,
		Status:    job.StatusPending,
		CreatedAt: s.now(),
	}
	s.jobs[j.ID] = j
	return copyJob(j), nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, common.ErrJobNotFound
	}
	return copyJob(j), nil
}

func (s *Store) GetActiveJob(ctx context.Context, targetID string, kind job.Kind) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if j := s.activeJobLocked(targetID, kind); j != nil {
		return copyJob(j), nil
	}
	return nil, nil
}

func (s *Store) activeJobLocked(targetID string, kind job.Kind) *job.Job {
	var newest *job.Job
	for _, j := range s.jobs {
		if j.TargetID != targetID || j.Kind != kind || !j.Active() {
			continue
		}
		if newest == nil || j.CreatedAt.After(newest.CreatedAt) {
			newest = j
		}
	}
	return newest
}

func (s *Store) UpdateJobStatus(ctx context.Context, id uuid.UUID, status job.Status, detail string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", common.ErrInvalidTransition, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return common.ErrJobNotFound
	}
	if j.Status.Terminal() {
		return fmt.Errorf("%w: job %s is already terminal", common.ErrInvalidTransition, id)
	}

	j.Status = status
	j.ErrorDetail = job.ErrorDetailFor(status, detail)
	j.CompletedAt = nil
	if status.Terminal() {
		now := s.now()
		j.CompletedAt = &now
	}
	return nil
}

func copyJob(j *job.Job) *job.Job {
	c := *j
	if j.ErrorDetail != nil {
		d := *j.ErrorDetail
		c.ErrorDetail = &d
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Videos

func (s *Store) CreateVideo(ctx context.Context, v *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[v.VideoID]; ok {
		return common.ErrVideoExists
	}
	v.ID = s.id()
	v.CreatedAt = s.now()
	stored := *v
	stored.HasTranscript, stored.HasSummary, stored.TranscriptJobStatus = nil, nil, nil
	s.videos[v.VideoID] = &stored
	return nil
}

func (s *Store) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[videoID]
	if !ok {
		return nil, common.ErrVideoNotFound
	}
	c := *v
	return &c, nil
}

func (s *Store) ListVideos(ctx context.Context, limit, offset int) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Video, 0, len(s.videos))
	for _, v := range s.videos {
		all = append(all, *v)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ScrapedAt != all[j].ScrapedAt {
			return all[i].ScrapedAt > all[j].ScrapedAt
		}
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return []models.Video{}, nil
	}
	page := all[offset:min(offset+limit, len(all))]

	for i := range page {
		t, ok := s.transcripts[page[i].VideoID]
		hasTranscript := ok
		hasSummary := ok && t.Summary != nil
		page[i].HasTranscript = &hasTranscript
		page[i].HasSummary = &hasSummary
		if j := s.activeJobLocked(page[i].VideoID, job.KindTranscribe); j != nil {
			status := string(j.Status)
			page[i].TranscriptJobStatus = &status
		}
	}
	return page, nil
}

func (s *Store) CountVideos(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.videos), nil
}

func (s *Store) DeleteVideo(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		return common.ErrVideoNotFound
	}
	delete(s.videos, videoID)
	delete(s.transcripts, videoID)
	delete(s.chunks, videoID)
	for id, j := range s.jobs {
		if j.TargetID == videoID {
			delete(s.jobs, id)
		}
	}
	return nil
}

// Transcripts

func (s *Store) CreateTranscript(ctx context.Context, videoID, content string) (*models.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		return nil, common.ErrVideoNotFound
	}
	if _, ok := s.transcripts[videoID]; ok {
		return nil, common.ErrTranscriptExists
	}
	t := &models.Transcript{
		ID:        s.id(),
		VideoID:   videoID,
		Content:   content,
		IndexedAt: s.now(),
	}
	s.transcripts[videoID] = t
	return copyTranscript(t), nil
}

func (s *Store) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transcripts[videoID]
	if !ok {
		return nil, common.ErrTranscriptNotFound
	}
	return copyTranscript(t), nil
}

func (s *Store) UpdateSummary(ctx context.Context, videoID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transcripts[videoID]
	if !ok {
		return common.ErrTranscriptNotFound
	}
	t.Summary = &summary
	return nil
}

func (s *Store) DeleteTranscript(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transcripts[videoID]; !ok {
		return common.ErrTranscriptNotFound
	}
	delete(s.transcripts, videoID)
	delete(s.chunks, videoID)
	return nil
}

func (s *Store) SearchTranscripts(ctx context.Context, query string, limit int) ([]models.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var results []models.Transcript
	for _, t := range s.transcripts {
		if !strings.Contains(strings.ToLower(t.Content), needle) {
			continue
		}
		c := copyTranscript(t)
		if v, ok := s.videos[t.VideoID]; ok {
			c.VideoTitle = v.VideoTitle
			c.VideoURL = v.VideoURL
		}
		results = append(results, *c)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].IndexedAt.After(results[j].IndexedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) ListSummaries(ctx context.Context) ([]models.VideoSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		summary models.VideoSummary
		at      time.Time
	}
	var entries []entry
	for id, t := range s.transcripts {
		if t.Summary == nil || *t.Summary == "" {
			continue
		}
		vs := models.VideoSummary{VideoID: id, Summary: *t.Summary}
		if v, ok := s.videos[id]; ok {
			vs.VideoTitle = v.VideoTitle
			vs.ChannelName = v.ChannelName
		}
		entries = append(entries, entry{summary: vs, at: t.IndexedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})

	out := make([]models.VideoSummary, len(entries))
	for i, e := range entries {
		out[i] = e.summary
	}
	return out, nil
}

func copyTranscript(t *models.Transcript) *models.Transcript {
	c := *t
	if t.Summary != nil {
		s := *t.Summary
		c.Summary = &s
	}
	return &c
}

// Chunks

func (s *Store) ReplaceChunks(ctx context.Context, videoID string, chunks []models.TranscriptChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		return common.ErrVideoNotFound
	}
	if len(chunks) == 0 {
		delete(s.chunks, videoID)
		return nil
	}
	stored := make([]models.TranscriptChunk, len(chunks))
	for i, c := range chunks {
		c.VideoID = videoID
		c.Embedding = append([]float32(nil), c.Embedding...)
		stored[i] = c
	}
	s.chunks[videoID] = stored
	return nil
}

func (s *Store) ListChunkVectors(ctx context.Context) ([]models.ChunkVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var vectors []models.ChunkVector
	for videoID, chunks := range s.chunks {
		v := s.videos[videoID]
		for _, c := range chunks {
			cv := models.ChunkVector{TranscriptChunk: c}
			if v != nil {
				cv.VideoTitle = v.VideoTitle
				cv.ChannelName = v.ChannelName
			}
			vectors = append(vectors, cv)
		}
	}
	sort.Slice(vectors, func(i, j int) bool {
		if vectors[i].VideoID != vectors[j].VideoID {
			return vectors[i].VideoID < vectors[j].VideoID
		}
		return vectors[i].ChunkIndex < vectors[j].ChunkIndex
	})
	return vectors, nil
}

func (s *Store) VideosWithoutChunks(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*models.Transcript
	for videoID, t := range s.transcripts {
		if len(s.chunks[videoID]) == 0 {
			pending = append(pending, t)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].IndexedAt.Before(pending[j].IndexedAt)
	})

	ids := make([]string, len(pending))
	for i, t := range pending {
		ids[i] = t.VideoID
	}
	return ids, nil
}

func (s *Store) EmbeddingStatus(ctx context.Context) (*models.EmbeddingStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &models.EmbeddingStatus{TotalTranscripts: len(s.transcripts)}
	for _, chunks := range s.chunks {
		if len(chunks) > 0 {
			st.EmbeddedVideos++
			st.TotalChunks += len(chunks)
		}
	}
	st.PendingVideos = max(st.TotalTranscripts-st.EmbeddedVideos, 0)
	return st, nil
}
