package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
)

// 编辑器状态
const (
	StateLoading = "loading"
	StateReady   = "ready"
	StateSaving  = "saving"
	StateSaved   = "saved"
	StateError   = "error"
)

// 事件
const (
	EventLoaded     = "loaded"
	EventLoadFailed = "load_failed"
	EventSave       = "save"
	EventSaved      = "saved"
	EventSaveFailed = "save_failed"
)

// machine 编辑器状态机
type machine struct {
	mu            sync.Mutex
	fsm           *fsm.FSM
	onStateChange func(from, to string)
}

func newMachine(initial string, onStateChange func(from, to string)) *machine {
	m := &machine{onStateChange: onStateChange}

	m.fsm = fsm.NewFSM(
		initial,
		fsm.Events{
			// 加载
			{Name: EventLoaded, Src: []string{StateLoading}, Dst: StateReady},
			{Name: EventLoadFailed, Src: []string{StateLoading}, Dst: StateError},

			// 保存：只能从 ready 开始，失败后回到 ready
			{Name: EventSave, Src: []string{StateReady}, Dst: StateSaving},
			{Name: EventSaved, Src: []string{StateSaving}, Dst: StateSaved},
			{Name: EventSaveFailed, Src: []string{StateSaving}, Dst: StateReady},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// current 当前状态
func (m *machine) current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fsm.Current()
}

// trigger 触发事件
func (m *machine) trigger(ctx context.Context, event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}
	return nil
}
