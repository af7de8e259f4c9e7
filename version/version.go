package version

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"
)

// Set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

// Info represents version information.
type Info struct {
	Version   string            `json:"version" yaml:"version"`
	GitCommit string            `json:"git_commit" yaml:"git_commit"`
	GitBranch string            `json:"git_branch" yaml:"git_branch"`
	BuildTime string            `json:"build_time" yaml:"build_time"`
	GoVersion string            `json:"go_version" yaml:"go_version"`
	Module    string            `json:"module,omitempty" yaml:"module,omitempty"`
	BuildDate time.Time         `json:"build_date" yaml:"-"`
	IsRelease bool              `json:"is_release" yaml:"is_release"`
	IsDirty   bool              `json:"is_dirty" yaml:"is_dirty"`
	Deps      map[string]string `json:"deps,omitempty" yaml:"deps,omitempty"`
}

// GetVersionInfo returns version information, including the versions of the
// modules the binary was linked against.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}

	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		applyBuildInfo(info, buildInfo)
	}

	if info.BuildDate.IsZero() {
		info.BuildDate = time.Now().UTC()
		info.BuildTime = info.BuildDate.Format(time.RFC3339)
	}

	return info
}

func applyBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.GoVersion == "" {
		info.GoVersion = bi.GoVersion
	}
	info.Module = bi.Main.Path

	if len(bi.Deps) > 0 {
		info.Deps = make(map[string]string, len(bi.Deps))
		for _, dep := range bi.Deps {
			d := dep
			if d.Replace != nil {
				d = d.Replace
			}
			info.Deps[d.Path] = d.Version
		}
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = setting.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.modified":
			info.IsDirty = setting.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					info.BuildDate = t
					info.BuildTime = setting.Value
				}
			}
		}
	}
}

// DepList returns the linked modules as sorted "path version" lines.
func (i *Info) DepList() []string {
	out := make([]string, 0, len(i.Deps))
	for path, v := range i.Deps {
		out = append(out, path+" "+v)
	}
	sort.Strings(out)
	return out
}

// GetShortVersion returns a short version string.
func GetShortVersion() string {
	info := GetVersionInfo()
	if info.GitCommit != "" {
		if info.IsDirty {
			return fmt.Sprintf("%s-%s-dirty", info.Version, info.GitCommit)
		}
		return fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
	}
	return info.Version
}

// GetFullVersion returns a detailed version string.
func GetFullVersion() string {
	info := GetVersionInfo()
	parts := []string{info.Version}
	if info.GitCommit != "" {
		parts = append(parts, info.GitCommit)
	}
	if info.GitBranch != "" && info.GitBranch != "main" && info.GitBranch != "master" {
		parts = append(parts, info.GitBranch)
	}
	if info.IsDirty {
		parts = append(parts, "dirty")
	}
	version := strings.Join(parts, "-")
	if !info.BuildDate.IsZero() {
		version += fmt.Sprintf(" (built %s)", info.BuildDate.Format("2006-01-02T15:04:05Z"))
	}
	return version
}
