package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tmux-cssh/pkg/hostlist"
)

// ErrConfigNotFound is returned when an explicitly requested file is missing.
var ErrConfigNotFound = errors.New("config not found")

// Loader accumulates settings, clusters and host specs from every
// configuration source, in the order they are loaded.
type Loader struct {
	Settings Settings
	Clusters hostlist.Clusters
	Hosts    []hostlist.HostSpec

	logger *slog.Logger
	stdin  io.Reader
}

// NewLoader returns a Loader seeded with the default settings.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		Settings: Default(),
		Clusters: hostlist.Clusters{},
		logger:   logger,
		stdin:    os.Stdin,
	}
}

// LoadSystem reads the implicit sources: /etc/clusters, /etc/csshrc,
// ~/.csshrc and the first YAML config found by ConfigPathCandidates.
// Missing files are skipped.
func (l *Loader) LoadSystem() error {
	if err := l.LoadClusterFile("/etc/clusters"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for _, p := range []string{"/etc/csshrc", "~/.csshrc"} {
		if err := l.LoadCsshrc(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.logger.Debug("skipping missing csshrc", "path", p)
				continue
			}
			return err
		}
	}
	for _, p := range ConfigPathCandidates("") {
		err := l.LoadYAML(p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// LoadClusterFile adds the clusters defined in a "name member..." file.
func (l *Loader) LoadClusterFile(path string) error {
	return hostlist.LoadClusterFile(expandPath(path), l.Clusters)
}

// LoadHostFile appends the host specs of a host file. "-" reads stdin.
func (l *Loader) LoadHostFile(path string) error {
	var (
		specs []hostlist.HostSpec
		err   error
	)
	if path == "-" {
		specs, err = hostlist.ReadHostFile(l.stdin)
	} else {
		specs, err = hostlist.LoadHostFile(expandPath(path))
	}
	if err != nil {
		return err
	}
	l.Hosts = append(l.Hosts, specs...)
	return nil
}

// LoadCsshrc reads a csshrc file from disk.
func (l *Loader) LoadCsshrc(path string) error {
	p := expandPath(path)
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := l.ReadCsshrc(f, p); err != nil {
		return fmt.Errorf("csshrc %s: %w", p, err)
	}
	return nil
}

// ReadCsshrc parses "key = value" lines. '#' starts a comment. Malformed
// lines, unknown keys and bad values are logged and skipped.
//
// Three keys are directives rather than settings:
//
//	clusters = web db          # web and db are read as cluster definitions
//	web = web-[1-4] lb1
//	hosts = ~/hosts1, ~/hosts2 # host files, loaded immediately
//	extra_cluster_file = ~/clusters
func (l *Loader) ReadCsshrc(r io.Reader, name string) error {
	type kv struct{ key, value string }
	var (
		entries  []kv
		clusters []string
	)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := splitKV(line)
		if !ok {
			l.logger.Warn("invalid csshrc line", "file", name, "line", lineNo, "text", sc.Text())
			continue
		}

		switch k {
		case "extra_cluster_file":
			for _, p := range splitList(v) {
				if err := l.LoadClusterFile(p); err != nil {
					return err
				}
			}
		case "hosts":
			for _, p := range splitList(v) {
				if err := l.LoadHostFile(p); err != nil {
					return err
				}
			}
		case "clusters":
			clusters = append(clusters, strings.Fields(v)...)
		default:
			entries = append(entries, kv{k, v})
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	isCluster := make(map[string]bool, len(clusters))
	for _, c := range clusters {
		isCluster[c] = true
		var members []string
		for _, e := range entries {
			if e.key == c {
				members = append(members, strings.Fields(e.value)...)
			}
		}
		if len(members) == 0 {
			l.logger.Warn("no hosts defined for cluster", "file", name, "cluster", c)
			continue
		}
		l.Clusters.Add(c, members...)
	}

	for _, e := range entries {
		if isCluster[e.key] {
			continue
		}
		l.apply(name, e.key, e.value)
	}
	return nil
}

func (l *Loader) apply(source, key, value string) {
	if err := l.Settings.Set(key, value); err != nil {
		l.logger.Warn("skipping setting", "file", source, "key", key, "err", err)
	}
}

// splitKV splits "key = value". The key must be a single word.
func splitKV(line string) (k, v string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	k = strings.TrimSpace(line[:i])
	if k == "" || strings.ContainsAny(k, " \t") {
		return "", "", false
	}
	return k, strings.TrimSpace(line[i+1:]), true
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// File is the YAML configuration.
//
// Example:
//
//	settings:
//	  action_key: '^B'
//	  controller_height: 8
//	  color_controller_background: [0, 0, 30000]
//	  screen_bounds: [0, 0, 200, 60]
//	clusters:
//	  web: [web-[1-4].example.com]
//	  all: [web, db-1]
//	hosts:
//	  - admin@db-1:2222 tail -f /var/log/syslog
type File struct {
	Settings map[string]yaml.Node `yaml:"settings"`
	Clusters map[string][]string  `yaml:"clusters"`
	Hosts    []string             `yaml:"hosts"`
}

// Validate checks the file before anything is applied.
func (f *File) Validate() error {
	for k, n := range f.Settings {
		if !KnownKey(k) {
			return fmt.Errorf("settings.%s: %w", k, ErrUnknownKey)
		}
		if _, err := nodeValue(&n); err != nil {
			return fmt.Errorf("settings.%s: %w", k, err)
		}
	}
	for name, members := range f.Clusters {
		if strings.TrimSpace(name) == "" {
			return errors.New("clusters: name is required")
		}
		if len(members) == 0 {
			return fmt.Errorf("clusters.%s: at least one member is required", name)
		}
		for i, m := range members {
			if strings.TrimSpace(m) == "" || strings.ContainsAny(strings.TrimSpace(m), " \t") {
				return fmt.Errorf("clusters.%s[%d]: invalid member %q", name, i, m)
			}
		}
	}
	for i, h := range f.Hosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("hosts[%d]: empty host", i)
		}
	}
	return nil
}

// nodeValue turns a YAML scalar or a flow sequence ([r, g, b]) into the
// string form Settings.Set expects.
func nodeValue(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("%w: nested value at line %d", ErrInvalidValue, c.Line)
			}
			parts = append(parts, c.Value)
		}
		return "{" + strings.Join(parts, ",") + "}", nil
	}
	return "", fmt.Errorf("%w: unsupported value at line %d", ErrInvalidValue, n.Line)
}

// LoadYAML reads a YAML configuration from disk.
func (l *Loader) LoadYAML(path string) error {
	p := expandPath(path)
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	return l.ReadYAML(data, p)
}

// ReadYAML applies a YAML configuration. Unlike csshrc files an invalid
// YAML file is rejected as a whole.
func (l *Loader) ReadYAML(data []byte, name string) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml %s: %w", name, err)
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", name, err)
	}

	next := l.Settings
	for k, n := range f.Settings {
		v, _ := nodeValue(&n)
		if err := next.Set(k, v); err != nil {
			return fmt.Errorf("invalid config %s: %w", name, err)
		}
	}
	l.Settings = next

	for name, members := range f.Clusters {
		l.Clusters.Add(name, members...)
	}
	specs, err := hostlist.ReadHostFile(strings.NewReader(strings.Join(f.Hosts, "\n")))
	if err != nil {
		return fmt.Errorf("invalid config %s: hosts: %w", name, err)
	}
	l.Hosts = append(l.Hosts, specs...)
	l.logger.Debug("loaded config", "path", name, "settings", len(f.Settings), "clusters", len(f.Clusters), "hosts", len(specs))
	return nil
}

// ConfigPathCandidates returns possible YAML configuration paths, in
// priority order:
// 1. explicitPath
// 2. $TMUX_CSSH_CONFIG
// 3. $XDG_CONFIG_HOME/tmux-cssh/config.yaml
// 4. ~/.config/tmux-cssh/config.yaml
func ConfigPathCandidates(explicitPath string) []string {
	var out []string
	if explicitPath != "" {
		out = append(out, explicitPath)
	}
	if env := os.Getenv("TMUX_CSSH_CONFIG"); env != "" {
		out = append(out, env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "tmux-cssh", "config.yaml"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		out = append(out, filepath.Join(home, ".config", "tmux-cssh", "config.yaml"))
	}
	return out
}

// LoadConfigFile loads a file named with --config: YAML when the
// extension says so, csshrc otherwise. A missing file is an error.
func (l *Loader) LoadConfigFile(path string) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = l.LoadYAML(path)
	default:
		err = l.LoadCsshrc(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	return err
}

// expandPath expands environment variables and a leading "~".
func expandPath(p string) string {
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, _ := os.UserHomeDir(); home != "" {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
