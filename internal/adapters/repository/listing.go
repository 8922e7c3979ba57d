package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
)

// Treap-based, in-memory rank index over Endurank scores.
//
// Ordering: score DESC, then id ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the listing
// from best to worst.

// scoreScale keeps three decimals; Endurank scores carry one.
const scoreScale = 1000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := math.Round(x * scoreScale)
	if scaled > math.MaxInt64 {
		return math.MaxInt64
	}
	if scaled < math.MinInt64 {
		return math.MinInt64
	}
	return scoreFP(scaled)
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// Entry is one row of a ranked listing. Equal scores share a rank and
// the next distinct score skips the tied positions (1, 2, 2, 4).
type Entry struct {
	Rank  int     `json:"rank"`
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: rand.Uint64(), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes score strictly higher than score.
func countAbove(n *node, score scoreFP) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit nodes in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{ID: n.id, Score: toFloat(n.score)})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// Listing is a rank index over one kind and cost sensitivity.
// Safe for concurrent use.
type Listing struct {
	mu   sync.RWMutex
	root *node
	byID map[string]scoreFP
}

// NewListing returns an empty listing.
func NewListing() *Listing {
	return &Listing{byID: make(map[string]scoreFP)}
}

// Upsert sets the score for id in O(log n) expected time. It reports
// whether the listing changed.
func (l *Listing) Upsert(id string, score float64) bool {
	ns := toFixedPoint(score)

	l.mu.Lock()
	defer l.mu.Unlock()
	if old, ok := l.byID[id]; ok {
		if old == ns {
			return false
		}
		l.root = deleteNode(l.root, id, old)
	}
	l.byID[id] = ns
	l.root = insert(l.root, id, ns)
	return true
}

// Remove drops id, reporting whether it was listed.
func (l *Listing) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	old, ok := l.byID[id]
	if !ok {
		return false
	}
	l.root = deleteNode(l.root, id, old)
	delete(l.byID, id)
	return true
}

// Rank returns the rank and score of id in O(log n).
func (l *Listing) Rank(ctx context.Context, id string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	score, ok := l.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: 1 + countAbove(l.root, score), ID: id, Score: toFloat(score)}, nil
}

// TopN returns the best n entries.
func (l *Listing) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, min(n, len(l.byID)))
	collectTopN(l.root, n, &out)
	assignRanks(out)
	return out, nil
}

// Count returns the number of listed ids.
func (l *Listing) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}

// assignRanks numbers a prefix of the listing with shared ranks for ties.
func assignRanks(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
