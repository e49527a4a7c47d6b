package config

import (
	"reflect"

	"github.com/MrWong99/dungeonmaster/internal/narrator"
)

// ConfigDiff describes what changed between two configs.
// LogLevel and Sampling can be applied to a running service; every other
// change is listed in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SamplingChanged bool

	// RestartRequired names the top-level sections whose changes only take
	// effect after a restart.
	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.SamplingChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Narrator.Sampling != new.Narrator.Sampling {
		d.SamplingChanged = true
	}

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	oldNarrator, newNarrator := old.Narrator, new.Narrator
	oldNarrator.Sampling, newNarrator.Sampling = narrator.Sampling{}, narrator.Sampling{}

	sections := []struct {
		name     string
		old, new any
	}{
		{"server", oldServer, newServer},
		{"providers", old.Providers, new.Providers},
		{"storage", old.Storage, new.Storage},
		{"narrator", oldNarrator, newNarrator},
		{"context", old.Context, new.Context},
		{"resilience", old.Resilience, new.Resilience},
		{"session", old.Session, new.Session},
		{"mcp", old.MCP, new.MCP},
		{"observability", old.Observability, new.Observability},
		{"seeds", old.Seeds, new.Seeds},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	return d
}
