// Package report inspects support-bundle zip archives and inventories
// the client and server log files they contain, so a log can be
// extracted straight from a bundle without unpacking it by hand.
package report

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Entry is one log file inside a system report archive.
type Entry struct {
	Name     string    `json:"name"`
	Size     uint64    `json:"size"`
	Modified time.Time `json:"modified"`
}

// Report is an opened system report archive.
type Report struct {
	archive    *zip.ReadCloser
	ClientLogs []Entry
	ServerLogs []Entry
}

// Open opens a system report zip and scans it for .log members under
// the Client/ and Server/ directories. Entries come back newest first.
func Open(path string) (*Report, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening system report %s: %w", path, err)
	}

	r := &Report{archive: archive}
	for _, file := range archive.File {
		if !strings.HasSuffix(file.Name, ".log") {
			continue
		}

		entry := Entry{
			Name:     file.Name,
			Size:     file.UncompressedSize64,
			Modified: file.Modified,
		}
		switch {
		case strings.HasPrefix(file.Name, "Server/"):
			r.ServerLogs = append(r.ServerLogs, entry)
		case strings.HasPrefix(file.Name, "Client/"):
			r.ClientLogs = append(r.ClientLogs, entry)
		}
	}

	sortNewestFirst(r.ClientLogs)
	sortNewestFirst(r.ServerLogs)
	return r, nil
}

func sortNewestFirst(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Modified.After(entries[j].Modified)
	})
}

// Entries returns all inventoried logs, server logs first.
func (r *Report) Entries() []Entry {
	out := make([]Entry, 0, len(r.ServerLogs)+len(r.ClientLogs))
	out = append(out, r.ServerLogs...)
	out = append(out, r.ClientLogs...)
	return out
}

// OpenLog opens one archived log by its full member name.
func (r *Report) OpenLog(name string) (io.ReadCloser, error) {
	for _, file := range r.archive.File {
		if file.Name == name {
			return file.Open()
		}
	}
	return nil, fmt.Errorf("no log %q in system report", name)
}

// Close releases the underlying archive.
func (r *Report) Close() error {
	return r.archive.Close()
}
