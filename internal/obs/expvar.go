package obs

import (
	"expvar"
	"sync/atomic"
)

var (
	backendRequests  int64
	backendFailures  int64
	activeWorkspaces int64
)

func init() {
	expvar.Publish("backend_requests_total", expvar.Func(func() any {
		return atomic.LoadInt64(&backendRequests)
	}))
	expvar.Publish("backend_failures_total", expvar.Func(func() any {
		return atomic.LoadInt64(&backendFailures)
	}))
	expvar.Publish("active_workspaces", expvar.Func(func() any {
		return atomic.LoadInt64(&activeWorkspaces)
	}))
}

// RecordBackendCall 统计一次后端调用；failed 包含网络错误与非 2xx。
func RecordBackendCall(failed bool) {
	atomic.AddInt64(&backendRequests, 1)
	if failed {
		atomic.AddInt64(&backendFailures, 1)
	}
}

func AddActiveWorkspaces(delta int64) {
	atomic.AddInt64(&activeWorkspaces, delta)
}

type Snapshot struct {
	BackendRequests  int64 `json:"backend_requests_total"`
	BackendFailures  int64 `json:"backend_failures_total"`
	ActiveWorkspaces int64 `json:"active_workspaces"`
}

func Stats() Snapshot {
	return Snapshot{
		BackendRequests:  atomic.LoadInt64(&backendRequests),
		BackendFailures:  atomic.LoadInt64(&backendFailures),
		ActiveWorkspaces: atomic.LoadInt64(&activeWorkspaces),
	}
}
