//go:build debug

package slotpool

import (
	"math"
	"reflect"
	"runtime/debug"
	"sync"
)

const poisonString = "<<poison>>"

// debugState tracks the borrow-site stack for every checked-out slot so leak
// reports can name the caller that never returned. Compiled in only under
// the debug build tag.
type debugState struct {
	pool   string
	mu     sync.Mutex
	stacks map[int]string
}

func newDebugState(pool string) *debugState {
	return &debugState{
		pool:   pool,
		stacks: make(map[int]string),
	}
}

func (d *debugState) recordAcquire(slot int) {
	if d == nil {
		return
	}
	stack := string(debug.Stack())
	d.mu.Lock()
	d.stacks[slot] = stack
	d.mu.Unlock()
}

func (d *debugState) recordRelease(slot int) {
	if d == nil {
		return
	}
	d.mu.Lock()
	delete(d.stacks, slot)
	d.mu.Unlock()
}

func (d *debugState) activeStacks() []string {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.stacks) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.stacks))
	for _, stack := range d.stacks {
		out = append(out, stack)
	}
	return out
}

// poison scribbles over an evicted object so a borrower that kept a stale
// reference fails loudly instead of reading recycled memory.
func (d *debugState) poison(obj any) {
	if d == nil || obj == nil {
		return
	}
	v := reflect.ValueOf(obj)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	poisonValue(v.Elem())
}

func poisonValue(v reflect.Value) {
	if !v.IsValid() || !v.CanSet() {
		return
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(poisonString)
	case reflect.Bool:
		v.SetBool(true)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(-1)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(math.MaxUint64)
	case reflect.Float32, reflect.Float64:
		v.SetFloat(math.MaxFloat64)
	case reflect.Slice:
		v.Set(reflect.MakeSlice(v.Type(), 0, 0))
	case reflect.Map:
		v.Set(reflect.MakeMapWithSize(v.Type(), 0))
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			poisonValue(v.Field(i))
		}
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		poisonValue(v.Elem())
	}
}
