package debug

import (
	"github.com/dshills/infopanel/internal/event"
)

// viewModel is the Manager's ViewModel. It is only touched on the loop.
type viewModel struct {
	focused *StackFrame
	updated event.Signal
}

func (vm *viewModel) FocusedStackFrame() *StackFrame {
	if vm.focused == nil {
		return nil
	}
	f := *vm.focused
	return &f
}

func (vm *viewModel) OnFocusedStackFrameUpdated(fn func()) event.Subscription {
	return vm.updated.Subscribe(fn)
}

// setFocusedStackFrame replaces the focused frame and notifies listeners.
func (vm *viewModel) setFocusedStackFrame(frame *StackFrame) {
	vm.focused = frame
	vm.updated.Fire()
}
