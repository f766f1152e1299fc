package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters. Background loops record here
// because their failures never surface to callers.
type Metrics struct {
	mu                  sync.Mutex
	requestCount        map[string]int64
	errorCount          map[string]int64
	notificationsSent   int64
	notificationsFailed int64
	tasksExecuted       int64
	tasksFailed         int64
	overdueTransitions  int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordNotification counts one delivery attempt by outcome.
func (m *Metrics) RecordNotification(delivered bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivered {
		m.notificationsSent++
	} else {
		m.notificationsFailed++
	}
}

// RecordTask counts one deferred work item by outcome.
func (m *Metrics) RecordTask(succeeded bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if succeeded {
		m.tasksExecuted++
	} else {
		m.tasksFailed++
	}
}

// RecordOverdue counts tickets flipped to overdue by the scanner.
func (m *Metrics) RecordOverdue(count int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overdueTransitions += int64(count)
}

// RequestCount returns how many requests completed with the given status.
func (m *Metrics) RequestCount(path, method string, status int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount[pathKey(path, method, status)]
}

// ErrorCount returns how many requests failed with the given error code.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount[path+"|"+method+"|"+code]
}

// NotificationCounts returns (sent, failed) totals.
func (m *Metrics) NotificationCounts() (int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsSent, m.notificationsFailed
}

// OverdueTransitions returns the scanner's flip total.
func (m *Metrics) OverdueTransitions() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overdueTransitions
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
