package service

import (
	"sync"
	"time"

	"clip-forge/app/model"
)

// JobRegistry 渲染任务注册表抽象。
// 实现必须对并发调用安全；返回与接收的都是任务快照，
// 状态变更统一通过 Update 进行。
type JobRegistry interface {
	Put(job model.RenderJob)
	Get(id string) (model.RenderJob, bool)
	Update(id string, fn func(job *model.RenderJob)) bool
	FindActive(clipID uint, format string) (model.RenderJob, bool)
	DeleteFinishedBefore(cutoff time.Time) int
}

// MemoryJobRegistry 互斥锁保护的进程内实现
type MemoryJobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*model.RenderJob
}

// NewMemoryJobRegistry 创建进程内任务注册表
func NewMemoryJobRegistry() *MemoryJobRegistry {
	return &MemoryJobRegistry{
		jobs: make(map[string]*model.RenderJob),
	}
}

// Put 登记任务
func (r *MemoryJobRegistry) Put(job model.RenderJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = &job
}

// Get 返回任务快照
func (r *MemoryJobRegistry) Get(id string) (model.RenderJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return model.RenderJob{}, false
	}
	return *job, true
}

// Update 在锁内原地修改任务
func (r *MemoryJobRegistry) Update(id string, fn func(job *model.RenderJob)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// FindActive 查找同一(片段,格式)上进行中的任务
func (r *MemoryJobRegistry) FindActive(clipID uint, format string) (model.RenderJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, job := range r.jobs {
		if job.ClipID == clipID && job.Format == format && job.IsActive() {
			return *job, true
		}
	}
	return model.RenderJob{}, false
}

// DeleteFinishedBefore 清理早于 cutoff 完成的任务，返回清理数量
func (r *MemoryJobRegistry) DeleteFinishedBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int
	for id, job := range r.jobs {
		if job.IsActive() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}
