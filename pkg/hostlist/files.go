package hostlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// stripComment removes everything from the first '#'.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// ReadHostFile parses a host file: one host spec per line, optionally followed
// by whitespace and a remote command. '#' starts a comment.
//
//	web-[1-3].example.com
//	admin@db1:2222   tail -f /var/log/syslog
func ReadHostFile(r io.Reader) ([]HostSpec, error) {
	var specs []HostSpec
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(sc.Text()))
		if line == "" {
			continue
		}
		host, command := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			host, command = line[:i], strings.TrimSpace(line[i+1:])
		}
		spec, err := ParseHostSpec(host, command)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		specs = append(specs, spec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}

// LoadHostFile reads a host file from disk.
func LoadHostFile(path string) ([]HostSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	specs, err := ReadHostFile(f)
	if err != nil {
		return nil, fmt.Errorf("host file %s: %w", path, err)
	}
	return specs, nil
}

// ReadClusterFile parses "name member member..." lines into c. Lines with a
// name but no member are ignored.
func ReadClusterFile(r io.Reader, c Clusters) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(stripComment(sc.Text()))
		if len(fields) < 2 {
			continue
		}
		c.Add(fields[0], fields[1:]...)
	}
	return sc.Err()
}

// LoadClusterFile reads a cluster file (such as /etc/clusters) into c.
func LoadClusterFile(path string, c Clusters) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ReadClusterFile(f, c); err != nil {
		return fmt.Errorf("cluster file %s: %w", path, err)
	}
	return nil
}
