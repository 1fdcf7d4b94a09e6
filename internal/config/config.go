// Package config implements SparkQ's dual-sourced configuration (spec
// §6.2, §9 "Configuration dual-sourcing"): a YAML file seeds defaults on
// first run, after which the database's config table is authoritative.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

// File is the shape of sparkq.yml (spec §6.2).
type File struct {
	Server struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
		Mode string `yaml:"mode"`
	} `yaml:"database"`
	Purge struct {
		OlderThanDays int `yaml:"older_than_days"`
	} `yaml:"purge"`
	QueueRunner struct {
		AutoFailIntervalSeconds int `yaml:"auto_fail_interval_seconds"`
		PollInterval            int `yaml:"poll_interval"`
	} `yaml:"queue_runner"`
	TaskClasses map[string]struct {
		Timeout int `yaml:"timeout"`
	} `yaml:"task_classes"`
	Tools map[string]struct {
		Description string `yaml:"description"`
		TaskClass   string `yaml:"task_class"`
	} `yaml:"tools"`
}

// Defaults matches the table in spec §6.2.
func Defaults() *File {
	f := &File{}
	f.Server.Host = "0.0.0.0"
	f.Server.Port = 5005
	f.Database.Path = "sparkq/data/sparkq.db"
	f.Database.Mode = "wal"
	f.Purge.OlderThanDays = 3
	f.QueueRunner.AutoFailIntervalSeconds = 30
	f.QueueRunner.PollInterval = 30
	return f
}

// Resolve finds the config file per spec §6.2's resolution order:
// SPARKQ_CONFIG env var → sparkq.yml in the current directory → project root.
func Resolve() (string, bool) {
	if p := os.Getenv("SPARKQ_CONFIG"); p != "" {
		return p, true
	}
	if _, err := os.Stat("sparkq.yml"); err == nil {
		return "sparkq.yml", true
	}
	if root, err := projectRoot(); err == nil {
		candidate := filepath.Join(root, "sparkq.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func projectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod found above " + wd)
		}
		dir = parent
	}
}

// Load reads the YAML file at path, falling back to Defaults() fields it
// doesn't set, and resolves the database path relative to the config
// file's directory per spec §6.2.
func Load(path string) (*File, error) {
	f := Defaults()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	if f.Database.Path != "" && !filepath.IsAbs(f.Database.Path) {
		f.Database.Path = filepath.Join(filepath.Dir(path), f.Database.Path)
	}
	return f, nil
}

// Seed writes the YAML-derived task classes and tools into the database
// on first run (spec §6.2 "On first start, the database is seeded from
// these values; thereafter the database is authoritative."). It is safe
// to call on every startup — UpsertTaskClass/UpsertTool are idempotent,
// but Seed only fires when the row doesn't already exist so a later
// runtime edit via the API is never clobbered by a stale YAML value.
func Seed(s *store.Store, f *File) error {
	for name, tc := range f.TaskClasses {
		if _, err := s.GetTaskClass(name); err == nil {
			continue
		}
		if _, err := s.UpsertTaskClass(name, tc.Timeout, ""); err != nil {
			return errors.Wrapf(err, "seed task class %q", name)
		}
	}
	for name, tool := range f.Tools {
		if _, err := s.GetTool(name); err == nil {
			continue
		}
		if _, err := s.UpsertTool(name, tool.TaskClass, tool.Description); err != nil {
			return errors.Wrapf(err, "seed tool %q", name)
		}
	}
	return nil
}

// Resolver overlays runtime database values (spec §6.2 §9) on top of the
// YAML-seeded defaults. Callers that cache a resolved value must
// invalidate on mutation endpoints (spec §5 "Shared-resource policy").
type Resolver struct {
	Store *store.Store
	File  *File
}

// NewResolver builds a Resolver over an already-seeded Store.
func NewResolver(s *store.Store, f *File) *Resolver {
	return &Resolver{Store: s, File: f}
}

// IntSetting returns the database override for namespace.key if present,
// else the YAML/default value passed in as fallback.
func (r *Resolver) IntSetting(namespace, key string, fallback int) int {
	entry, ok, err := r.Store.GetConfig(namespace, key)
	if err != nil || !ok {
		return fallback
	}
	var v int
	if err := json.Unmarshal([]byte(entry.Value), &v); err != nil {
		return fallback
	}
	return v
}

// AutoFailIntervalSeconds returns the currently effective auto-fail tick
// interval, in seconds.
func (r *Resolver) AutoFailIntervalSeconds() int {
	return r.IntSetting("queue_runner", "auto_fail_interval_seconds", r.File.QueueRunner.AutoFailIntervalSeconds)
}

// PurgeRetentionDays returns the currently effective purge retention window.
func (r *Resolver) PurgeRetentionDays() int {
	return r.IntSetting("purge", "older_than_days", r.File.Purge.OlderThanDays)
}

// Addr renders the bind address for the HTTP server.
func (f *File) Addr() string {
	return fmt.Sprintf("%s:%d", f.Server.Host, f.Server.Port)
}
