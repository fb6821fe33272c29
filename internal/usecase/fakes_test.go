package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/plastinin/comictranslate/internal/domain"
)

// stageFunc подменяет ответ одного этапа
type stageFunc func(ctx context.Context) (*domain.StageResult, error)

// fakeBackend бэкенд в памяти; этапы без подмены отвечают пустым успехом
type fakeBackend struct {
	mu      sync.Mutex
	stages  map[domain.StageKey]stageFunc
	result  func(ctx context.Context) (*domain.ResultImage, error)
	calls   []domain.StageKey
	lastReq domain.TranslationRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{stages: make(map[domain.StageKey]stageFunc)}
}

func (f *fakeBackend) on(key domain.StageKey, fn stageFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages[key] = fn
}

func (f *fakeBackend) onResult(fn func(ctx context.Context) (*domain.ResultImage, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = fn
}

func (f *fakeBackend) Calls() []domain.StageKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.StageKey(nil), f.calls...)
}

func (f *fakeBackend) run(ctx context.Context, key domain.StageKey) (*domain.StageResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	fn := f.stages[key]
	f.mu.Unlock()

	if fn == nil {
		return &domain.StageResult{Stage: key, Status: "ok"}, nil
	}
	return fn(ctx)
}

func (f *fakeBackend) DetectBlocks(ctx context.Context, _ string) (*domain.StageResult, error) {
	return f.run(ctx, domain.StageDetecting)
}

func (f *fakeBackend) RecognizeText(ctx context.Context, _ string) (*domain.StageResult, error) {
	return f.run(ctx, domain.StageOCR)
}

func (f *fakeBackend) Translate(ctx context.Context, _ string, req domain.TranslationRequest) (*domain.StageResult, error) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	return f.run(ctx, domain.StageTranslating)
}

func (f *fakeBackend) Inpaint(ctx context.Context, _ string, _ domain.TranslationRequest) (*domain.StageResult, error) {
	return f.run(ctx, domain.StageInpainting)
}

func (f *fakeBackend) Render(ctx context.Context, _ string) (*domain.StageResult, error) {
	return f.run(ctx, domain.StageRendering)
}

func (f *fakeBackend) FetchResult(ctx context.Context, _ string) (*domain.ResultImage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, domain.StageCompleted)
	fn := f.result
	f.mu.Unlock()

	if fn == nil {
		return &domain.ResultImage{ContentType: "image/png", Data: []byte("translated")}, nil
	}
	return fn(ctx)
}

// fakeRunRepo репозиторий запусков в памяти
type fakeRunRepo struct {
	mu        sync.Mutex
	runs      map[uuid.UUID]domain.Run
	updates   []domain.Run
	updateErr error
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[uuid.UUID]domain.Run)}
}

func (r *fakeRunRepo) Create(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *fakeRunRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

func (r *fakeRunRepo) Update(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.runs[run.ID]; !ok {
		return domain.ErrRunNotFound
	}
	r.runs[run.ID] = *run
	r.updates = append(r.updates, *run)
	return nil
}

func (r *fakeRunRepo) UpdateIfStatus(_ context.Context, run *domain.Run, from domain.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	current, ok := r.runs[run.ID]
	if !ok {
		return domain.ErrRunNotFound
	}
	if current.Status != from {
		return domain.ErrRunChanged
	}
	r.runs[run.ID] = *run
	r.updates = append(r.updates, *run)
	return nil
}

func (r *fakeRunRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return domain.ErrRunNotFound
	}
	delete(r.runs, id)
	return nil
}

func (r *fakeRunRepo) List(_ context.Context, filter domain.RunFilter, pagination domain.Pagination) (*domain.RunListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := make([]*domain.Run, 0, len(r.runs))
	for _, run := range r.runs {
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		if filter.WorkItemID != "" && run.WorkItemID != filter.WorkItemID {
			continue
		}
		run := run
		runs = append(runs, &run)
	}
	return &domain.RunListResult{Runs: runs, Total: len(runs), Pagination: pagination}, nil
}

func (r *fakeRunRepo) stored(id uuid.UUID) domain.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id]
}

func (r *fakeRunRepo) Updates() []domain.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Run(nil), r.updates...)
}

// fakeStorage хранилище результатов в памяти
type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	deleted   []string
	uploadErr error
	seq       int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *fakeStorage) Upload(_ context.Context, fileName, contentType string, reader io.Reader, _ int64) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	key := fmt.Sprintf("results/%d/%s", s.seq, fileName)
	s.objects[key] = data
	s.types[key] = contentType
	return key, nil
}

func (s *fakeStorage) Download(_ context.Context, fileKey string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[fileKey]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), s.types[fileKey], nil
}

func (s *fakeStorage) Delete(_ context.Context, fileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, fileKey)
	s.deleted = append(s.deleted, fileKey)
	return nil
}

func (s *fakeStorage) GetURL(_ context.Context, fileKey string) (string, error) {
	return "https://s3.local/" + fileKey, nil
}

// fakeQueue очередь в памяти
type fakeQueue struct {
	mu         sync.Mutex
	enqueued   []string
	dequeued   []string
	cancelled  []string
	enqueueErr error
	dequeueErr error
	// missing: задачи уже нет в очереди, Dequeue ничего не удаляет
	missing bool
	// active: попытку выполняет воркер
	active    bool
	onDequeue func()
}

func queueKey(runID uuid.UUID, attempt int) string {
	return fmt.Sprintf("%s:%d", runID, attempt)
}

func (q *fakeQueue) Enqueue(_ context.Context, runID uuid.UUID, attempt int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, queueKey(runID, attempt))
	return nil
}

func (q *fakeQueue) Dequeue(_ context.Context, runID uuid.UUID, attempt int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.onDequeue != nil {
		q.onDequeue()
	}
	if q.dequeueErr != nil {
		return false, q.dequeueErr
	}
	if q.missing || q.active {
		return false, nil
	}
	q.dequeued = append(q.dequeued, queueKey(runID, attempt))
	return true, nil
}

func (q *fakeQueue) TaskActive(_ context.Context, _ uuid.UUID, _ int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active, nil
}

func (q *fakeQueue) CancelProcessing(_ context.Context, runID uuid.UUID, attempt int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, queueKey(runID, attempt))
	return nil
}
