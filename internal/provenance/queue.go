package provenance

import (
	"context"
	"errors"
	"sync"
)

// Handler 处理队列中的溯源记录负载(JSON 编码的 Record)。
type Handler func(ctx context.Context, payload string) error

// Queue 向下游索引器广播溯源记录。
type Queue interface {
	Publish(ctx context.Context, payload string) error
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// ErrQueueFull 表示队列缓冲已满,本条记录被丢弃。
var ErrQueueFull = errors.New("队列已满")

// MemoryQueue 使用 channel 模拟消息队列,主要用于测试。
type MemoryQueue struct {
	ch     chan string
	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue 创建一个内存队列。
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan string, size)}
}

var _ Queue = (*MemoryQueue)(nil)

// Publish 将记录投递到队列。缓冲满时立即返回 ErrQueueFull 而不是阻塞,
// 广播是尽力而为的,不允许拖住决策路径。
func (q *MemoryQueue) Publish(ctx context.Context, payload string) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return errors.New("队列已关闭")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume 启动指定数量的工作协程消费队列。
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-q.ch:
					if !ok {
						return
					}
					_ = handler(ctx, payload)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close 关闭内存队列。
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if !q.closed {
		close(q.ch)
		q.closed = true
	}
	q.mu.Unlock()
	return nil
}
