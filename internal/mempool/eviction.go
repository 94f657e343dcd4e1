package mempool

import "sort"

// Evict trims the pool down to maxSize, removing the lowest fee-rate
// entries first and, among equal fee rates, the oldest first.
func (p *Pool) Evict() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.txs) <= p.maxSize {
		return 0
	}

	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].feeRate != entries[j].feeRate {
			return entries[i].feeRate < entries[j].feeRate
		}
		return entries[i].seq < entries[j].seq
	})

	evicted := 0
	for len(p.txs) > p.maxSize && evicted < len(entries) {
		p.removeLocked(entries[evicted].tx.TxID)
		evicted++
	}
	return evicted
}
