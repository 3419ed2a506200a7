//go:build !debug

package slotpool

type debugState struct{}

func newDebugState(string) *debugState { return nil }

func (d *debugState) recordAcquire(int) {}

func (d *debugState) recordRelease(int) {}

func (d *debugState) activeStacks() []string { return nil }

func (d *debugState) poison(any) {}
