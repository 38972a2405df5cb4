package hwio

import (
	"iter"
	"math/bits"
)

const (
	NumBits  = 0x10000            // 16-bit address space
	wordSize = 64                 // using 64-bit words
	numWords = NumBits / wordSize // 1024 words exactly
)

// Bitset is a set of addresses of the 16-bit address space. Zero value is an
// empty set.
type Bitset struct {
	words [numWords]uint64
	n     int
}

// Set adds addr to the set.
func (b *Bitset) Set(addr uint16) {
	w, m := &b.words[addr/wordSize], uint64(1)<<(addr%wordSize)
	if *w&m == 0 {
		*w |= m
		b.n++
	}
}

// Clear removes addr from the set.
func (b *Bitset) Clear(addr uint16) {
	w, m := &b.words[addr/wordSize], uint64(1)<<(addr%wordSize)
	if *w&m != 0 {
		*w &^= m
		b.n--
	}
}

// Test reports whether addr is in the set.
func (b *Bitset) Test(addr uint16) bool {
	return b.words[addr/wordSize]&(1<<(addr%wordSize)) != 0
}

// Len returns the number of addresses in the set.
func (b *Bitset) Len() int { return b.n }

// All iterates over the addresses of the set, in ascending order.
func (b *Bitset) All() iter.Seq[uint16] {
	return func(yield func(uint16) bool) {
		for i, w := range b.words {
			for w != 0 {
				bit := bits.TrailingZeros64(w)
				if !yield(uint16(i*wordSize + bit)) {
					return
				}
				w &= w - 1
			}
		}
	}
}

// Reset clears all bits in the Bitset.
func (b *Bitset) Reset() {
	b.words = [numWords]uint64{}
	b.n = 0
}
