package builtin

import (
	"fmt"
	"runtime"
	"runtime/metrics"
	"sync"
	"time"

	"github.com/dm-vev/chunkengine/server/cmd"
)

type statusCommand struct {
	srv serverAdapter
}

func newStatusCommand(srv serverAdapter) cmd.Command {
	return cmd.New("status", "Displays world and server performance statistics.", "", nil, statusCommand{srv: srv})
}

func (s statusCommand) Run(_ cmd.Source, _ []string, o *cmd.Output) {
	st := s.srv.Status()

	o.Printf("Uptime: %s", st.Uptime.Round(time.Second))
	o.Printf("Columns: %d loaded | Viewers: %d | Forced chunks: %d", st.LoadedColumns, st.Viewers, st.ForcedChunks)
	if st.TPS > 0 {
		o.Printf("TPS (avg): %.2f / 20.00 | Tick: %d", st.TPS, st.CurrentTick)
	} else {
		o.Printf("TPS (avg): collecting samples... | Tick: %d", st.CurrentTick)
	}
	lm := st.Level
	o.Printf("Columns loaded: %d | generated: %d | corrupt: %d | failed: %d", lm.Loaded, lm.Generated, lm.Corrupt, lm.Failed)
	o.Printf("Columns saved: %d | evicted: %d | revived: %d", lm.Saved, lm.Evicted, lm.Revived)
	sm := st.Scheduler
	o.Printf("Ticks scheduled: %d | coalesced: %d | deferred: %d | executed: %d", sm.Scheduled, sm.Coalesced, sm.Deferred, lm.Ticks)
	o.Printf("Tick batches: %d | largest batch: %d", sm.Batches, sm.LargestBatch)

	if cpuLoad, ready := sampleAverageCPULoad(); ready {
		o.Printf("CPU load (per core): %.2f%% across %d cores", cpuLoad, runtime.NumCPU())
	} else {
		o.Print("CPU load: collecting baseline, try again shortly.")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	heapAlloc := bytesToMiB(mem.HeapAlloc)
	heapSys := bytesToMiB(mem.HeapSys)
	lastGC := "never"
	if mem.LastGC != 0 {
		lastGC = fmt.Sprintf("%s ago", time.Since(time.Unix(0, int64(mem.LastGC))).Round(time.Second))
	}
	o.Printf("Memory: %.2f MiB heap used / %.2f MiB reserved", heapAlloc, heapSys)
	o.Printf("Goroutines: %d | GOMAXPROCS: %d | GC cycles: %d | Last GC: %s", runtime.NumGoroutine(), runtime.GOMAXPROCS(0), mem.NumGC, lastGC)
}

var (
	cpuSampleMu       sync.Mutex
	cpuSampleLastTime time.Time
	cpuSampleLastUsed float64
)

func sampleAverageCPULoad() (float64, bool) {
	samples := []metrics.Sample{
		{Name: "/sched/cpu_seconds_total"},
	}
	metrics.Read(samples)
	if samples[0].Value.Kind() != metrics.KindFloat64 {
		return 0, false
	}
	total := samples[0].Value.Float64()
	now := time.Now()

	cpuSampleMu.Lock()
	defer cpuSampleMu.Unlock()

	ready := !cpuSampleLastTime.IsZero()
	deltaTime := now.Sub(cpuSampleLastTime).Seconds()
	deltaUsed := total - cpuSampleLastUsed

	cpuSampleLastTime = now
	cpuSampleLastUsed = total

	if !ready || deltaTime <= 0 || deltaUsed < 0 {
		return 0, false
	}

	usage := (deltaUsed / deltaTime / float64(runtime.NumCPU())) * 100
	return min(max(usage, 0), 100), true
}

func bytesToMiB(v uint64) float64 {
	return float64(v) / (1024 * 1024)
}
