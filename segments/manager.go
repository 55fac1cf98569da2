package segments

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/kjk/kvlog/kvstore"
	"github.com/kjk/kvlog/log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	segmentPrefix = "segment-"
	segmentExt    = ".log"
)

// Manager is an ordered collection of kvstore.Store segments.
// Writes go to the newest segment, reads check segments from newest
// to oldest.
// Manager is safe for concurrent use.
type Manager struct {
	sync.Mutex

	// directory with segment files. Required.
	Dir string

	// called before every Set with the size of the newest segment.
	// If it returns true, the segment is sealed and a new one is started.
	// If nil, we never roll automatically.
	ShouldRoll func(size int64) bool

	// called after a segment was sealed, with the manager unlocked,
	// so it may call back into the Manager
	DidRoll func(path string)

	// passed to every segment
	SyncWrite bool

	// if set, manager metrics are registered with it
	Registerer prometheus.Registerer

	// newest first
	segments []*segment
	metrics  *managerMetrics
}

type segment struct {
	num   int
	store *kvstore.Store
}

// SegmentName returns file name of segment number n
func SegmentName(n int) string {
	return fmt.Sprintf("%s%06d%s", segmentPrefix, n, segmentExt)
}

// ParseSegmentName returns segment number for a file name created
// by SegmentName. Names not in that exact form (e.g. "segment-1.log")
// are rejected.
func ParseSegmentName(name string) (int, bool) {
	s, ok := strings.CutPrefix(name, segmentPrefix)
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, segmentExt)
	if !ok || s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || SegmentName(n) != name {
		return 0, false
	}
	return n, true
}

// listSegments returns numbers of segment files in dir, newest first
func listSegments(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var res []int
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if n, ok := ParseSegmentName(e.Name()); ok {
			res = append(res, n)
		}
	}
	slices.Sort(res)
	slices.Reverse(res)
	return res, nil
}

// openSegment opens segment n, creating an empty file if needed so that
// the segment is found on next open
func (m *Manager) openSegment(n int) (*segment, error) {
	path := filepath.Join(m.Dir, SegmentName(n))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kvstore.ErrIO, err)
	}
	f.Close()

	s := &kvstore.Store{
		Path:      path,
		SyncWrite: m.SyncWrite,
	}
	if err := kvstore.OpenStore(s); err != nil {
		return nil, err
	}
	return &segment{num: n, store: s}, nil
}

// Open opens a segment manager in dir. See OpenManager.
func Open(dir string) (*Manager, error) {
	m := &Manager{
		Dir: dir,
	}
	if err := OpenManager(m); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenManager creates m.Dir if needed and opens all segments in it.
// If there are no segments, an empty segment 1 is started.
func OpenManager(m *Manager) error {
	if m.Dir == "" {
		return fmt.Errorf("segments dir is not set")
	}
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", kvstore.ErrIO, err)
	}
	nums, err := listSegments(m.Dir)
	if err != nil {
		return fmt.Errorf("%w: %w", kvstore.ErrIO, err)
	}
	if len(nums) == 0 {
		nums = []int{1}
	}

	var segs []*segment
	for _, n := range nums {
		seg, err := m.openSegment(n)
		if err != nil {
			return fmt.Errorf("failed to open segment %d: %w", n, err)
		}
		segs = append(segs, seg)
	}

	m.Lock()
	defer m.Unlock()
	m.segments = segs
	if m.metrics == nil {
		m.metrics = newManagerMetrics(m.Registerer, m.Dir)
	}
	m.metrics.segments.Set(float64(len(segs)))
	log.Verbosef("segments: opened %d segments in '%s'\n", len(segs), m.Dir)
	return nil
}

// must be called with lock held. Returns path of the sealed segment.
func (m *Manager) roll() (string, error) {
	cur := m.segments[0]
	seg, err := m.openSegment(cur.num + 1)
	if err != nil {
		return "", fmt.Errorf("failed to start segment %d: %w", cur.num+1, err)
	}
	m.segments = slices.Insert(m.segments, 0, seg)
	m.metrics.rolls.Inc()
	m.metrics.segments.Set(float64(len(m.segments)))

	sealed := cur.store.FilePath()
	log.Verbosef("segments: sealed '%s' at %d bytes\n", sealed, cur.store.Size())
	log.Event("segments_roll", "sealed", sealed, "size", cur.store.Size(), "segment", seg.num)
	return sealed, nil
}

func (m *Manager) didRoll(sealed string) {
	if sealed != "" && m.DidRoll != nil {
		m.DidRoll(sealed)
	}
}

// Roll seals the newest segment and starts a new one
func (m *Manager) Roll() error {
	m.Lock()
	sealed, err := m.roll()
	m.Unlock()
	m.didRoll(sealed)
	return err
}

func (m *Manager) set(key string, value string) (string, error) {
	m.Lock()
	defer m.Unlock()

	sealed := ""
	cur := m.segments[0].store
	if m.ShouldRoll != nil && m.ShouldRoll(cur.Size()) {
		var err error
		if sealed, err = m.roll(); err != nil {
			return "", err
		}
		cur = m.segments[0].store
	}
	return sealed, cur.Set(key, value)
}

// Set writes key to the newest segment, rolling first if ShouldRoll says so
func (m *Manager) Set(key string, value string) error {
	sealed, err := m.set(key, value)
	m.didRoll(sealed)
	return err
}

// Get returns the value of key from the newest segment that has it
func (m *Manager) Get(key string) (string, bool, error) {
	m.Lock()
	defer m.Unlock()

	for _, seg := range m.segments {
		v, ok, err := seg.store.Get(key)
		if err != nil {
			return "", false, fmt.Errorf("segment %d: %w", seg.num, err)
		}
		if ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Segments returns paths of segment files, newest first
func (m *Manager) Segments() []string {
	m.Lock()
	defer m.Unlock()

	res := make([]string, len(m.segments))
	for i, seg := range m.segments {
		res[i] = seg.store.FilePath()
	}
	return res
}

// Size returns total size of all segments in bytes
func (m *Manager) Size() int64 {
	m.Lock()
	defer m.Unlock()

	var n int64
	for _, seg := range m.segments {
		n += seg.store.Size()
	}
	return n
}
