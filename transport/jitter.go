package transport

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxJitterPackets bounds memory growth under sustained loss of
// the extraction consumer.
const DefaultMaxJitterPackets = 100

// jitterEntry is one arrived packet awaiting reassembly into its frame.
type jitterEntry struct {
	payload []byte
	arrival time.Time
}

// jitterBucket holds every packet seen so far for one RTP timestamp.
type jitterBucket struct {
	timestamp uint32
	firstSeen time.Time
	entries   []jitterEntry
}

// JitterBuffer reassembles frames from same-timestamp packet buckets,
// holding each bucket for bufferMs before it becomes extractable, and
// evicting the oldest bucket whole on overflow. Buckets are keyed by
// RTP timestamp and concatenated on extraction: a frame can span
// multiple packets sharing one timestamp rather than always being
// exactly one packet per frame.
//
// Single-threaded by contract: owned by the receive stage, never called
// concurrently from more than one goroutine.
type JitterBuffer struct {
	mu          sync.Mutex
	bufferMs    time.Duration
	maxPackets  int
	buckets     []*jitterBucket // sorted by timestamp, oldest first
	byTimestamp map[uint32]*jitterBucket
	dropped     uint64
}

// NewJitterBuffer creates a buffer with the given target dwell and
// overflow threshold. A non-positive maxPackets uses
// DefaultMaxJitterPackets.
func NewJitterBuffer(bufferMs time.Duration, maxPackets int) *JitterBuffer {
	if maxPackets <= 0 {
		maxPackets = DefaultMaxJitterPackets
	}
	return &JitterBuffer{
		bufferMs:    bufferMs,
		maxPackets:  maxPackets,
		byTimestamp: make(map[uint32]*jitterBucket),
	}
}

// InsertPacket buckets payload under timestamp. On capacity breach the
// oldest timestamp bucket (in its entirety) is dropped.
func (jb *JitterBuffer) InsertPacket(timestamp uint32, payload []byte) {
	jb.mu.Lock()
	defer jb.mu.Unlock()

	now := time.Now()
	bucket, exists := jb.byTimestamp[timestamp]
	if !exists {
		bucket = &jitterBucket{timestamp: timestamp, firstSeen: now}
		jb.byTimestamp[timestamp] = bucket
		idx := sort.Search(len(jb.buckets), func(i int) bool {
			return jb.buckets[i].timestamp >= timestamp
		})
		jb.buckets = append(jb.buckets, nil)
		copy(jb.buckets[idx+1:], jb.buckets[idx:])
		jb.buckets[idx] = bucket
	}
	bucket.entries = append(bucket.entries, jitterEntry{payload: payload, arrival: now})

	if jb.totalPackets() > jb.maxPackets {
		jb.evictOldestLocked()
	}
}

func (jb *JitterBuffer) totalPackets() int {
	n := 0
	for _, b := range jb.buckets {
		n += len(b.entries)
	}
	return n
}

func (jb *JitterBuffer) evictOldestLocked() {
	if len(jb.buckets) == 0 {
		return
	}
	evicted := jb.buckets[0]
	jb.buckets = jb.buckets[1:]
	delete(jb.byTimestamp, evicted.timestamp)
	jb.dropped += uint64(len(evicted.entries))
	logrus.WithFields(logrus.Fields{
		"function":  "JitterBuffer.InsertPacket",
		"timestamp": evicted.timestamp,
		"packets":   len(evicted.entries),
	}).Warn("jitter buffer overflow, dropped oldest timestamp bucket")
}

// TryExtractFrame peeks at the oldest timestamp bucket; if its first
// packet has been resident at least bufferMs, every entry's payload is
// concatenated in arrival order and the bucket is removed. Otherwise ok
// is false and no mutation occurs.
func (jb *JitterBuffer) TryExtractFrame() (frame []byte, timestamp uint32, ok bool) {
	jb.mu.Lock()
	defer jb.mu.Unlock()

	if len(jb.buckets) == 0 {
		return nil, 0, false
	}
	oldest := jb.buckets[0]
	if time.Since(oldest.firstSeen) < jb.bufferMs {
		return nil, 0, false
	}

	total := 0
	for _, e := range oldest.entries {
		total += len(e.payload)
	}
	out := make([]byte, 0, total)
	for _, e := range oldest.entries {
		out = append(out, e.payload...)
	}

	jb.buckets = jb.buckets[1:]
	delete(jb.byTimestamp, oldest.timestamp)
	return out, oldest.timestamp, true
}

// BufferedMs reports how long the oldest buffered packet has been
// resident, or 0 if the buffer is empty.
func (jb *JitterBuffer) BufferedMs() time.Duration {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	if len(jb.buckets) == 0 {
		return 0
	}
	return time.Since(jb.buckets[0].firstSeen)
}

// Len returns the number of buffered packets across all timestamp
// buckets.
func (jb *JitterBuffer) Len() int {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	return jb.totalPackets()
}

// DroppedPackets returns the cumulative count of packets lost to
// overflow eviction.
func (jb *JitterBuffer) DroppedPackets() uint64 {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	return jb.dropped
}

// Reset empties the buffer and forgets all timestamp tracking.
func (jb *JitterBuffer) Reset() {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	jb.buckets = nil
	jb.byTimestamp = make(map[uint32]*jitterBucket)
}
