package formresponse

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager 草稿会话注册表：每个会话持有一个控制器实例，
// 供无状态的HTTP处理层按会话ID寻址；闲置会话定期清理。
type Manager struct {
	deps   Deps
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
	stop     chan struct{}
	stopOnce sync.Once
}

type session struct {
	controller *Controller
	lastSeen   time.Time
}

// NewManager 创建草稿会话注册表并启动清理循环
func NewManager(deps Deps, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		deps:     deps,
		ttl:      ttl,
		logger:   logger,
		sessions: map[string]*session{},
		stop:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Create 创建草稿会话并异步加载表单结构
func (m *Manager) Create(formID, userID string) (string, *Controller) {
	ctl := New(formID, userID, m.deps)
	go ctl.LoadSchema(context.Background())

	sid := uuid.New().String()[:32]
	m.mu.Lock()
	m.sessions[sid] = &session{controller: ctl, lastSeen: time.Now()}
	m.mu.Unlock()

	m.logger.Debug("draft session created",
		zap.String("session_id", sid), zap.String("form_id", formID))
	return sid, ctl
}

// Get 按会话ID获取控制器并刷新活跃时间
func (m *Manager) Get(sid string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sid]
	if !ok {
		return nil, false
	}
	s.lastSeen = time.Now()
	return s.controller, true
}

// Remove 移除草稿会话
func (m *Manager) Remove(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
}

// Close 停止清理循环
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *Manager) sweep() {
	interval := m.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.ttl)
			m.mu.Lock()
			for sid, s := range m.sessions {
				if s.lastSeen.Before(cutoff) {
					delete(m.sessions, sid)
					m.logger.Debug("draft session expired", zap.String("session_id", sid))
				}
			}
			m.mu.Unlock()
		}
	}
}
