package debugger

import (
	"fmt"
	"slices"

	"dmgcore/hw/hwdefs"
)

type stackFrame struct {
	src    uint16
	target uint16
	ret    uint16
	irq    hwdefs.IRQSource // non-zero for interrupt handlers
}

// callStack tracks CALL/RST and interrupt dispatches, popped on returns.
type callStack []stackFrame

func (cs *callStack) push(src, dst, ret uint16, irq hwdefs.IRQSource) {
	*cs = append(*cs, stackFrame{
		src:    src,
		target: dst,
		ret:    ret,
		irq:    irq,
	})
}

func (cs *callStack) len() int {
	return len(*cs)
}

func (cs *callStack) pop() {
	if cs.len() == 0 {
		return
	}
	*cs = (*cs)[:cs.len()-1]
}

func (cs *callStack) reset() {
	*cs = (*cs)[:0]
}

// frameInfo is a stack frame as displayed: entry point, current address.
type frameInfo [2]string

// build returns the frames, innermost first.
func (cs *callStack) build(pc uint16) []frameInfo {
	nfos := make([]frameInfo, 0, cs.len()+1)
	var curf *stackFrame
	for i, f := range *cs {
		if i > 0 {
			curf = &((*cs)[i-1])
		}
		nfos = slices.Insert(nfos, 0, frameInfo{
			cs.entryPoint(curf),
			fmt.Sprintf("$%04X", f.src),
		})
	}

	curf = nil
	if cs.len() > 0 {
		curf = &((*cs)[cs.len()-1])
	}

	return slices.Insert(nfos, 0, frameInfo{
		cs.entryPoint(curf),
		fmt.Sprintf("$%04X", pc),
	})
}

func (callStack) entryPoint(f *stackFrame) string {
	if f == nil {
		return "[bottom of stack]"
	}

	str := fmt.Sprintf("%04X", f.target)
	if f.irq != 0 {
		return "[" + f.irq.String() + "] $" + str
	}
	return str
}
