// Package descriptor parses the line-oriented topology descriptors.
//
// Every descriptor is a text file with one record per line and fields
// separated by whitespace. Blank lines and lines starting with '#' are
// skipped. A malformed line fails the whole load.
package descriptor

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"micronet/api"
)

const (
	SourceLoopbacks = "loopbacks"
	SourceLinks     = "links"
	SourcePaths     = "paths"
	SourceMulticast = "multicast"
)

// Files names the four descriptor files. Multicast is optional.
type Files struct {
	Loopbacks string `yaml:"loopbacks"`
	Links     string `yaml:"links"`
	Paths     string `yaml:"paths"`
	Multicast string `yaml:"multicast,omitempty"`
}

// Load reads and parses every descriptor named in f.
func Load(f Files) (*api.Descriptors, error) {
	var (
		d   api.Descriptors
		err error
	)
	if err = loadFile(f.Loopbacks, func(r io.Reader) error {
		d.Loopbacks, err = LoadLoopbacks(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err = loadFile(f.Links, func(r io.Reader) error {
		d.Links, err = LoadLinks(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err = loadFile(f.Paths, func(r io.Reader) error {
		d.Paths, err = LoadPaths(r)
		return err
	}); err != nil {
		return nil, err
	}
	if f.Multicast != "" {
		if err = loadFile(f.Multicast, func(r io.Reader) error {
			d.Multicast, err = LoadMulticast(r)
			return err
		}); err != nil {
			return nil, err
		}
	}
	logrus.Debugf("loaded %d loopbacks, %d links, %d paths, %d multicast rules",
		len(d.Loopbacks), len(d.Links), len(d.Paths), len(d.Multicast))
	return &d, nil
}

// LoadLoopbacksFile parses only the loopback descriptor, which is all
// teardown needs.
func LoadLoopbacksFile(path string) ([]api.LoopbackEntry, error) {
	var (
		entries []api.LoopbackEntry
		err     error
	)
	err = loadFile(path, func(r io.Reader) error {
		entries, err = LoadLoopbacks(r)
		return err
	})
	return entries, err
}

func loadFile(path string, parse func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open descriptor")
	}
	defer f.Close()
	return errors.Wrapf(parse(f), "parse %s", path)
}

// LoadLoopbacks parses `nodeId loopbackAddress` lines.
func LoadLoopbacks(r io.Reader) ([]api.LoopbackEntry, error) {
	var entries []api.LoopbackEntry
	err := scan(r, SourceLoopbacks, func(line int, fields []string) error {
		if len(fields) != 2 {
			return fieldCount(SourceLoopbacks, line, "2", len(fields))
		}
		entries = append(entries, api.LoopbackEntry{Node: fields[0], Address: fields[1], Line: line})
		return nil
	})
	return entries, err
}

// LoadLinks parses `nodeA nodeB <reserved> <address> <reserved>` lines.
func LoadLinks(r io.Reader) ([]api.LinkEntry, error) {
	var entries []api.LinkEntry
	err := scan(r, SourceLinks, func(line int, fields []string) error {
		if len(fields) != 5 {
			return fieldCount(SourceLinks, line, "5", len(fields))
		}
		entries = append(entries, api.LinkEntry{From: fields[0], To: fields[1], Address: fields[3], Line: line})
		return nil
	})
	return entries, err
}

// LoadPaths parses `nodeId interfaceOrAddrRef nextHop destination` lines.
func LoadPaths(r io.Reader) ([]api.PathEntry, error) {
	var entries []api.PathEntry
	err := scan(r, SourcePaths, func(line int, fields []string) error {
		if len(fields) != 4 {
			return fieldCount(SourcePaths, line, "4", len(fields))
		}
		entries = append(entries, api.PathEntry{
			Node:        fields[0],
			Ref:         fields[1],
			NextHop:     fields[2],
			Destination: fields[3],
			Line:        line,
		})
		return nil
	})
	return entries, err
}

// LoadMulticast parses `nodeId inIndex group outIndex...` lines.
func LoadMulticast(r io.Reader) ([]api.MulticastEntry, error) {
	var entries []api.MulticastEntry
	err := scan(r, SourceMulticast, func(line int, fields []string) error {
		if len(fields) < 4 {
			return fieldCount(SourceMulticast, line, "at least 4", len(fields))
		}
		in, err := index(SourceMulticast, line, fields[1])
		if err != nil {
			return err
		}
		e := api.MulticastEntry{Node: fields[0], In: in, Group: fields[2], Line: line}
		for _, f := range fields[3:] {
			out, err := index(SourceMulticast, line, f)
			if err != nil {
				return err
			}
			e.Out = append(e.Out, out)
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func scan(r io.Reader, source string, fn func(line int, fields []string) error) error {
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := fn(line, strings.Fields(text)); err != nil {
			return err
		}
	}
	return errors.Wrapf(s.Err(), "read %s", source)
}

func fieldCount(source string, line int, want string, got int) error {
	return &api.ConfigurationError{
		Source: source,
		Line:   line,
		Msg:    "expected " + want + " fields, got " + strconv.Itoa(got),
	}
}

func index(source string, line int, s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, &api.ConfigurationError{Source: source, Line: line, Msg: "invalid interface index " + strconv.Quote(s)}
	}
	return i, nil
}
