package cache

import "sync"

// Mock mode keeps the package functional without a Redis server. Only the
// bits the vote path needs are simulated: string storage and SetNX locks.
var (
	mockMode  bool
	mockMutex sync.Mutex
	mockData  = make(map[string]string)
	mockLocks = make(map[string]bool)
)
