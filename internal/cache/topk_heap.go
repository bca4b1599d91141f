// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"github.com/tomtom215/affinity/internal/models"
)

// TopKHeap keeps the k best score entries seen so far. The root is the
// worst kept entry, so a full heap rejects or replaces in O(log k).
//
// Order matches SortEntries: higher score first, then lower target id.
// A TopKHeap is not safe for concurrent use.
type TopKHeap struct {
	heap []models.ScoreEntry
	k    int // 0 = unbounded
}

// NewTopKHeap creates a heap that keeps at most k entries. k <= 0 keeps
// everything.
func NewTopKHeap(k int) *TopKHeap {
	if k < 0 {
		k = 0
	}
	size := k
	if size == 0 || size > 256 {
		size = 256
	}
	return &TopKHeap{heap: make([]models.ScoreEntry, 0, size), k: k}
}

// Offer adds e if it ranks among the best k. It reports whether e was kept.
func (h *TopKHeap) Offer(e models.ScoreEntry) bool {
	if h.k == 0 || len(h.heap) < h.k {
		h.heap = append(h.heap, e)
		h.bubbleUp(len(h.heap) - 1)
		return true
	}
	if !worse(h.heap[0], e) {
		return false
	}
	h.heap[0] = e
	h.bubbleDown(0)
	return true
}

// Len returns the number of kept entries.
func (h *TopKHeap) Len() int {
	return len(h.heap)
}

// Sorted drains the heap and returns the kept entries best first.
func (h *TopKHeap) Sorted() []models.ScoreEntry {
	out := make([]models.ScoreEntry, len(h.heap))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out
}

// worse reports whether a ranks below b.
func worse(a, b models.ScoreEntry) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.TargetID > b.TargetID
}

func (h *TopKHeap) pop() models.ScoreEntry {
	n := len(h.heap) - 1
	root := h.heap[0]
	h.heap[0] = h.heap[n]
	h.heap = h.heap[:n]
	if n > 0 {
		h.bubbleDown(0)
	}
	return root
}

func (h *TopKHeap) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !worse(h.heap[i], h.heap[parent]) {
			break
		}
		h.heap[i], h.heap[parent] = h.heap[parent], h.heap[i]
		i = parent
	}
}

func (h *TopKHeap) bubbleDown(i int) {
	n := len(h.heap)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && worse(h.heap[left], h.heap[smallest]) {
			smallest = left
		}
		if right < n && worse(h.heap[right], h.heap[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.heap[i], h.heap[smallest] = h.heap[smallest], h.heap[i]
		i = smallest
	}
}
