package vm

import (
	"fmt"

	"github.com/mna/ember/lang/value"
)

// Coroutine is a generator's reification as an Iterator: a nested VM
// activation with its own register file and call-frame stack (run on its
// own goroutine, strictly hand-off-scheduled with its caller so only one
// of the two ever executes at a time, per the single-threaded cooperative
// model - no preemption, no real concurrency, just a convenient way to
// give the generator's body its own Go call stack to suspend mid-function
// at `yield`). It shares the owning Thread's constant pool, globals and
// meta-table registry, grounded on the teacher's register-window Frame.
type Coroutine struct {
	fn   *value.Function
	th   *Thread // a child Thread, its own call stack, sharing globals/pool
	name string

	started bool
	done    bool
	final   value.Value
	lastErr error

	fr0regs []value.Value // the callee's already-populated register window

	resumeCh chan struct{}
	yieldCh  chan coroResult
	abort    chan struct{}
}

type coroResult struct {
	v    value.Value
	done bool
	err  error
}

var (
	_ value.Value    = (*Coroutine)(nil)
	_ value.Iterator = (*Coroutine)(nil)
)

func (co *Coroutine) String() string { return fmt.Sprintf("generator %s", co.name) }
func (*Coroutine) Type() string      { return "generator" }
func (*Coroutine) Truth() value.Bool { return value.True }

// newCoroutine builds a suspended generator activation for fn, already
// bound to regs (captures and arguments already placed per the chunk's
// register layout).
func (th *Thread) newCoroutine(fn *value.Function, regs []value.Value) *Coroutine {
	child := th.spawnChild()
	return &Coroutine{
		fn:       fn,
		th:       child,
		name:     fn.FuncName,
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan coroResult, 1),
		abort:    make(chan struct{}),
		fr0regs:  regs,
	}
}

// Next advances the generator by one `yield`, or to completion. It
// satisfies value.Iterator so a Coroutine can sit directly in a register
// and drive `for` loops and the iterator adaptor set like any other
// Iterable's Iterator.
func (co *Coroutine) Next(p *value.Value) bool {
	if co.done {
		return false
	}
	if !co.started {
		co.started = true
		go co.runBody()
	} else {
		select {
		case co.resumeCh <- struct{}{}:
		case <-co.abort:
			co.done = true
			return false
		}
	}
	r := <-co.yieldCh
	if r.err != nil {
		co.done = true
		co.lastErr = r.err
		return false
	}
	if r.done {
		co.done = true
		co.final = r.v
		return false
	}
	*p = r.v
	return true
}

// Done releases the generator; if it is suspended mid-body, its goroutine
// is told to abandon execution rather than leaking forever.
func (co *Coroutine) Done() {
	if co.done {
		return
	}
	co.done = true
	close(co.abort)
}

// Err returns the error, if any, that ended the generator (as opposed to
// a clean `return` or exhausting its body).
func (co *Coroutine) Err() error { return co.lastErr }

// Result returns the generator function's own return value, once it has
// run to completion (as opposed to being abandoned via Done).
func (co *Coroutine) Result() value.Value { return co.final }

func (co *Coroutine) runBody() {
	fr := newFrame(co.fn.Chunk, co.fn.FuncName)
	fr.regs = co.fr0regs
	fr.coro = co
	v, err := co.th.run(fr)
	co.yieldCh <- coroResult{v: v, done: true, err: err}
}

// yield is called by the run loop's Yield opcode handling when the
// current frame belongs to a Coroutine: it hands val to the consumer and
// blocks until resumed or abandoned.
func (co *Coroutine) yield(val value.Value) error {
	co.yieldCh <- coroResult{v: val}
	select {
	case <-co.resumeCh:
		return nil
	case <-co.abort:
		return newError(KindCancelled, "generator abandoned")
	}
}
