package biz

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// recordCache 进程内记录缓存，nil 表示未启用。
// 每次写操作推进代数；读穿透期间代数发生变化时不回填，
// 否则删除或替换之前读到的旧记录会被写回缓存。
// 多实例部署时其他实例的写操作不可见，应保持关闭。
type recordCache struct {
	mu  sync.Mutex
	gen uint64
	lru *expirable.LRU[string, *FileRecord]
}

func newRecordCache(size int, ttl time.Duration) *recordCache {
	if size <= 0 {
		return nil
	}
	return &recordCache{lru: expirable.NewLRU[string, *FileRecord](size, nil, ttl)}
}

// get 命中时返回副本；未命中时返回当前代数，供 fill 校验
func (c *recordCache) get(id string) (*FileRecord, uint64, bool) {
	if c == nil {
		return nil, 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.lru.Get(id); ok {
		return rec.Clone(), c.gen, true
	}
	return nil, c.gen, false
}

// fill 仅当读取期间没有写操作时回填
func (c *recordCache) fill(rec *FileRecord, gen uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.lru.Add(rec.ID, rec.Clone())
}

// invalidate 在元数据写入提交之后调用
func (c *recordCache) invalidate(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Remove(id)
}
