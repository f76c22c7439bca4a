package workerpool

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Priority 优先级定义
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 5
	PriorityHigh   Priority = 10
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
	ErrQueueFull  = errors.New("worker pool queue is full")
)

// Task 后台任务；ctx 在 Shutdown 时取消，与发起请求的 ctx 无关
type Task func(ctx context.Context)

// Config Worker Pool 配置
type Config struct {
	Workers         int           `mapstructure:"workers"`          // worker 数量
	QueueSize       int           `mapstructure:"queue_size"`       // 优先级队列容量
	EnablePriority  bool          `mapstructure:"enable_priority"`  // 是否启用优先级队列
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 关闭时等待运行中任务的时间
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:         16,
		QueueSize:       1000,
		EnablePriority:  true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Statistics 统计信息
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成（含失败）
	Failed    int64 // panic 的任务
	Running   int64 // 运行中
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Int64
}

func (c *counters) snapshot() Statistics {
	return Statistics{
		Submitted: c.submitted.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Running:   c.running.Load(),
	}
}

// ============= 优先级队列 =============

type priorityTask struct {
	priority Priority
	task     Task
	seq      uint64
}

type priorityQueue []*priorityTask

func (pq priorityQueue) Len() int { return len(pq) }

// 高优先级先出；同优先级按提交顺序
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority > pq[j].priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*priorityTask)) }

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return t
}

// ============= Worker Pool =============

// Pool 基于 ants 的 worker pool，可选优先级队列
type Pool struct {
	pool   *ants.Pool
	config *Config

	queue    priorityQueue
	queueMu  sync.Mutex
	seq      uint64
	notEmpty chan struct{}

	stats counters

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	logger *zap.Logger
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("workerpool: workers must be > 0, got %d", config.Workers)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(err interface{}) {
			logger.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		pool:   antsPool,
		config: config,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	if config.EnablePriority {
		p.queue = make(priorityQueue, 0, config.QueueSize)
		heap.Init(&p.queue)
		p.notEmpty = make(chan struct{}, 1)

		p.wg.Add(1)
		go p.scheduler()
	}

	return p, nil
}

// Submit 提交普通优先级任务
func (p *Pool) Submit(task Task) error {
	return p.SubmitWithPriority(PriorityNormal, task)
}

// SubmitWithPriority 提交带优先级的任务
func (p *Pool) SubmitWithPriority(priority Priority, task Task) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	if !p.config.EnablePriority {
		p.stats.submitted.Add(1)
		return p.pool.Submit(p.wrap(task))
	}

	p.queueMu.Lock()
	if p.config.QueueSize > 0 && p.queue.Len() >= p.config.QueueSize {
		p.queueMu.Unlock()
		return ErrQueueFull
	}
	p.seq++
	heap.Push(&p.queue, &priorityTask{priority: priority, task: task, seq: p.seq})
	p.queueMu.Unlock()

	p.stats.submitted.Add(1)
	select {
	case p.notEmpty <- struct{}{}:
	default:
	}
	return nil
}

func (p *Pool) wrap(task Task) func() {
	return func() {
		p.stats.running.Add(1)
		defer func() {
			p.stats.running.Add(-1)
			p.stats.completed.Add(1)
			if r := recover(); r != nil {
				p.stats.failed.Add(1)
				p.logger.Error("task panic", zap.Any("error", r), zap.Stack("stacktrace"))
			}
		}()
		task(p.ctx)
	}
}

// scheduler 把优先级队列中的任务交给 ants
func (p *Pool) scheduler() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.notEmpty:
			p.dispatch()
		}
	}
}

func (p *Pool) dispatch() {
	for {
		if p.ctx.Err() != nil {
			return
		}

		p.queueMu.Lock()
		if p.queue.Len() == 0 {
			p.queueMu.Unlock()
			return
		}
		pt := heap.Pop(&p.queue).(*priorityTask)
		p.queueMu.Unlock()

		if err := p.pool.Submit(p.wrap(pt.task)); err != nil {
			p.logger.Warn("dispatch failed, requeueing", zap.Error(err))
			p.queueMu.Lock()
			heap.Push(&p.queue, pt)
			p.queueMu.Unlock()
			time.Sleep(10 * time.Millisecond)
			select {
			case p.notEmpty <- struct{}{}:
			default:
			}
			return
		}
	}
}

// QueueLength 获取排队中的任务数
func (p *Pool) QueueLength() int {
	if !p.config.EnablePriority {
		return 0
	}
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	return p.queue.Len()
}

// Running 获取运行中的 worker 数量
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return p.stats.snapshot()
}

// Shutdown 停止接收任务，取消任务 ctx，并在超时内等待运行中的任务结束。
// 尚未出队的任务被丢弃。
func (p *Pool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()

	if dropped := p.QueueLength(); dropped > 0 {
		p.logger.Warn("dropping queued tasks on shutdown", zap.Int("count", dropped))
	}

	timeout := p.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("worker pool release timed out", zap.Error(err))
	}
}
