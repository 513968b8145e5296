package builtin

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/dm-vev/chunkengine/server/cmd"
)

type aboutCommand struct {
	srv serverAdapter
}

func newAboutCommand(srv serverAdapter) cmd.Command {
	return cmd.New("about", "Displays engine and build information.", "", []string{"version"}, aboutCommand{srv: srv})
}

func (a aboutCommand) Run(_ cmd.Source, _ []string, o *cmd.Output) {
	o.Print("Chunk Engine")

	info, ok := debug.ReadBuildInfo()
	goVersion := runtime.Version()
	if ok && info != nil && info.GoVersion != "" {
		goVersion = info.GoVersion
	}
	o.Printf("Go runtime: %s", goVersion)

	if info != nil {
		revision := ""
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				revision = setting.Value
				break
			}
		}
		if revision != "" {
			o.Printf("Commit: %s", revision)
		}
	}

	r := a.srv.Level().Range()
	o.Printf("World height: %d to %d", r.Min(), r.Max())
	if started := a.srv.StartTime(); !started.IsZero() {
		o.Printf("Uptime: %s", time.Since(started).Round(time.Second))
	}
}
