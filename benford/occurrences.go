package benford

import "github.com/shopspring/decimal"

// Occurrences counts how many times each digit was seen as a leading digit.
// Digits keep the order in which they were first added; that order decides
// which bucket absorbs the rounding remainder in AllocatePercentages.
type Occurrences struct {
	order  []int
	counts map[int]int
}

func NewOccurrences() *Occurrences {
	return &Occurrences{counts: map[int]int{}}
}

// OccurrencesOf builds Occurrences from (digit, count) pairs, keeping argument order.
//
//	OccurrencesOf(1, 10, 2, 3, 3, 5)
func OccurrencesOf(pairs ...int) *Occurrences {
	o := NewOccurrences()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.Set(pairs[i], pairs[i+1])
	}
	return o
}

// CountOccurrences counts digits. When universe is given every digit in it
// gets a bucket, zero or not, in universe order.
func CountOccurrences(digits []int, universe ...int) *Occurrences {
	o := NewOccurrences()
	if len(universe) > 0 {
		for _, d := range universe {
			o.Set(d, 0)
		}
	}
	for _, d := range digits {
		if len(universe) > 0 {
			if _, ok := o.counts[d]; !ok {
				continue
			}
		}
		o.Add(d)
	}
	return o
}

func (o *Occurrences) Add(digit int) {
	if _, ok := o.counts[digit]; !ok {
		o.order = append(o.order, digit)
	}
	o.counts[digit]++
}

// Set assigns the count of digit. A digit seen for the first time goes last.
func (o *Occurrences) Set(digit, count int) {
	if _, ok := o.counts[digit]; !ok {
		o.order = append(o.order, digit)
	}
	o.counts[digit] = count
}

// Count returns the count of digit, 0 when it never occurred.
func (o *Occurrences) Count(digit int) int {
	if o == nil {
		return 0
	}
	return o.counts[digit]
}

func (o *Occurrences) Has(digit int) bool {
	if o == nil {
		return false
	}
	_, ok := o.counts[digit]
	return ok
}

// Digits returns digits in first-occurrence order.
func (o *Occurrences) Digits() []int {
	if o == nil {
		return nil
	}
	out := make([]int, len(o.order))
	copy(out, o.order)
	return out
}

func (o *Occurrences) Len() int {
	if o == nil {
		return 0
	}
	return len(o.order)
}

func (o *Occurrences) Total() int {
	if o == nil {
		return 0
	}
	total := 0
	for _, c := range o.counts {
		total += c
	}
	return total
}

func (o *Occurrences) Clone() *Occurrences {
	c := NewOccurrences()
	if o == nil {
		return c
	}
	for _, d := range o.order {
		c.Set(d, o.counts[d])
	}
	return c
}

// Map returns a plain copy of the counts.
func (o *Occurrences) Map() map[int]int {
	out := make(map[int]int, o.Len())
	if o == nil {
		return out
	}
	for d, c := range o.counts {
		out[d] = c
	}
	return out
}

// Percentages holds the share of each digit, in the same order as the
// Occurrences it was allocated from.
type Percentages struct {
	order  []int
	values map[int]decimal.Decimal
}

func newPercentages() *Percentages {
	return &Percentages{values: map[int]decimal.Decimal{}}
}

func (p *Percentages) set(digit int, v decimal.Decimal) {
	if _, ok := p.values[digit]; !ok {
		p.order = append(p.order, digit)
	}
	p.values[digit] = v
}

// Of returns the percentage of digit, decimal zero when absent.
func (p *Percentages) Of(digit int) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	v, ok := p.values[digit]
	if !ok {
		return decimal.Zero
	}
	return v
}

func (p *Percentages) Digits() []int {
	if p == nil {
		return nil
	}
	out := make([]int, len(p.order))
	copy(out, p.order)
	return out
}

func (p *Percentages) Len() int {
	if p == nil {
		return 0
	}
	return len(p.order)
}

// Sum adds all percentages up. It is exactly 100 for a non-empty allocation.
func (p *Percentages) Sum() decimal.Decimal {
	sum := decimal.Zero
	if p == nil {
		return sum
	}
	for _, v := range p.values {
		sum = sum.Add(v)
	}
	return sum
}

// Equal reports whether both allocations hold the same digits, order and values.
func (p *Percentages) Equal(other *Percentages) bool {
	if p.Len() != other.Len() {
		return false
	}
	for i, d := range p.Digits() {
		if other.order[i] != d || !other.values[d].Equal(p.values[d]) {
			return false
		}
	}
	return true
}
