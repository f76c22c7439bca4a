package biz

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

var errInjected = errors.New("injected failure")

// memRepo 内存版 FileRepo，可按操作注入故障
type memRepo struct {
	mu      sync.Mutex
	records map[string]*FileRecord

	failCreate bool
	failUpdate bool
	failDelete bool
	// afterGet 非 nil 时在 GetByID 读出记录后、返回前调用
	afterGet func(id string)
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[string]*FileRecord{}}
}

func (r *memRepo) Create(ctx context.Context, rec *FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errInjected
	}
	r.records[rec.ID] = rec.Clone()
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*FileRecord, error) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if ok {
		rec = rec.Clone()
	}
	hook := r.afterGet
	r.mu.Unlock()

	if !ok {
		return nil, ErrFileNotFound
	}
	if hook != nil {
		hook(id)
	}
	return rec, nil
}

func (r *memRepo) GetByIDs(ctx context.Context, ids []string) ([]*FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*FileRecord
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (r *memRepo) Update(ctx context.Context, id string, p *FilePatch) (*FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return nil, errInjected
	}
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	if p.OriginalName != nil {
		rec.OriginalName = *p.OriginalName
	}
	if p.FileType != nil {
		rec.FileType = *p.FileType
	}
	if p.ContentType != nil {
		rec.ContentType = *p.ContentType
	}
	if p.Path != nil {
		rec.Path = *p.Path
	}
	if p.Size != nil {
		rec.Size = *p.Size
	}
	if p.BumpVersion {
		rec.Version++
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.SubCategory != nil {
		rec.SubCategory = *p.SubCategory
	}
	if p.Year != nil {
		rec.Year = *p.Year
	}
	if p.Month != nil {
		rec.Month = *p.Month
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Tags != nil {
		rec.Tags = *p.Tags
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.IsArchived != nil {
		rec.IsArchived = *p.IsArchived
	}
	rec.UpdatedAt = time.Now().UTC()
	return rec.Clone(), nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete {
		return errInjected
	}
	delete(r.records, id)
	return nil
}

func (r *memRepo) Query(ctx context.Context, f Filter, page PageRequest) (*Page, error) {
	r.mu.Lock()
	var rows []*FileRecord
	for _, rec := range r.records {
		if matches(rec, f) {
			rows = append(rows, rec.Clone())
		}
	}
	r.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	if c := page.Cursor; c != nil {
		rows = lo.Filter(rows, func(rec *FileRecord, _ int) bool {
			return rec.CreatedAt.Before(c.CreatedAt) || (rec.CreatedAt.Equal(c.CreatedAt) && rec.ID < c.ID)
		})
	}
	if len(rows) > page.Limit+1 {
		rows = rows[:page.Limit+1]
	}
	return NewPage(rows, page.Limit), nil
}

func matches(rec *FileRecord, f Filter) bool {
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Year != 0 && rec.Year != f.Year {
		return false
	}
	if f.SubCategory != "" && rec.SubCategory != f.SubCategory {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(rec.OriginalName), term) &&
			!strings.Contains(strings.ToLower(rec.Description), term) &&
			!strings.Contains(strings.ToLower(rec.Category), term) {
			return false
		}
	}
	return true
}

// memBlobs 内存版 BlobStore，统计调用次数
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte

	failPut    bool
	failDelete bool

	deletes atomic.Int32
	walks   atomic.Int32
	// walkGate 非 nil 时 Walk 列举之后阻塞直到其关闭
	walkGate chan struct{}
	walking  chan struct{}
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(ctx context.Context, key string, data []byte, contentType string) (BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPut {
		return BlobInfo{}, errInjected
	}
	b.objects[key] = append([]byte(nil), data...)
	return BlobInfo{Key: key, Size: int64(len(data))}, nil
}

func (b *memBlobs) Get(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, BlobInfo{}, ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), BlobInfo{Key: key, Size: int64(len(data))}, nil
}

func (b *memBlobs) Delete(ctx context.Context, key string) error {
	b.deletes.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete {
		return errInjected
	}
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *memBlobs) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	b.walks.Add(1)
	b.mu.Lock()
	infos := make([]BlobInfo, 0, len(b.objects))
	for k, v := range b.objects {
		infos = append(infos, BlobInfo{Key: k, Size: int64(len(v))})
	}
	b.mu.Unlock()

	// 列举完成后再挂起，挂起期间的写入不会出现在本次结果中
	if b.walking != nil {
		b.walking <- struct{}{}
	}
	if b.walkGate != nil {
		<-b.walkGate
	}

	for _, info := range infos {
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

func (b *memBlobs) Locate(ctx context.Context, key, fileName string, expiry time.Duration) (string, error) {
	return "https://blobs.example.com/" + key + "?expires=" + expiry.String(), nil
}

func (b *memBlobs) has(key string) bool {
	ok, _ := b.Exists(context.Background(), key)
	return ok
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// drop 绕过 Delete 直接移除对象，模拟对象丢失
func (b *memBlobs) drop(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
}

// memStats 内存版 StatsStore，复刻时间戳严格递增规则
type memStats struct {
	mu    sync.Mutex
	stats *StorageStats
	saves int
}

func (m *memStats) Load(ctx context.Context) (*StorageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		return nil, nil
	}
	s := *m.stats
	return &s, nil
}

func (m *memStats) Save(ctx context.Context, s StorageStats) (StorageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats != nil && !s.LastUpdated.After(m.stats.LastUpdated) {
		s.LastUpdated = m.stats.LastUpdated.Add(time.Nanosecond)
	}
	m.stats = &s
	m.saves++
	return s, nil
}

func (m *memStats) Adjust(ctx context.Context, files, size int64, at time.Time) (*StorageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		return nil, nil
	}
	s := *m.stats
	s.TotalFiles += files
	s.TotalSizeBytes += size
	s.Estimated = true
	if !at.After(s.LastUpdated) {
		at = s.LastUpdated.Add(time.Nanosecond)
	}
	s.LastUpdated = at
	m.stats = &s
	return &s, nil
}

// memRecent 内存版 RecentStore
type memRecent struct {
	mu        sync.Mutex
	entries   map[string]map[string]time.Time
	failPrune bool
	removed   []string
}

func newMemRecent() *memRecent {
	return &memRecent{entries: map[string]map[string]time.Time{}}
}

func (m *memRecent) Add(ctx context.Context, userID, fileID string, at time.Time, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.entries[userID]
	if !ok {
		set = map[string]time.Time{}
		m.entries[userID] = set
	}
	set[fileID] = at
	for len(set) > limit {
		oldest := lo.MinBy(lo.Keys(set), func(a, b string) bool { return set[a].Before(set[b]) })
		delete(set, oldest)
	}
	return nil
}

func (m *memRecent) List(ctx context.Context, userID string, limit int) ([]RecentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RecentEntry
	for id, at := range m.entries[userID] {
		out = append(out, RecentEntry{FileID: id, ViewedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ViewedAt.After(out[j].ViewedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRecent) Remove(ctx context.Context, userID string, fileIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPrune {
		return errInjected
	}
	for _, id := range fileIDs {
		delete(m.entries[userID], id)
	}
	m.removed = append(m.removed, fileIDs...)
	return nil
}

func (m *memRecent) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

// recordingNotifier 记录收到的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (n *recordingNotifier) Notify(ctx context.Context, e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	if n.fail {
		return errInjected
	}
	return nil
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	return lo.Map(n.events, func(e Event, _ int) EventType { return e.Type })
}
