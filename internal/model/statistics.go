package model

import (
	"time"

	"github.com/google/uuid"
)

// FileStat records the path and size of one file extreme.
type FileStat struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// TextFileStat is the smallest-text extreme. It is the only place where
// file content is retained, and only as a truncated snapshot.
type TextFileStat struct {
	FileStat
	Content string `json:"content"`
}

// ExternalServer is the liveness record of a server that was referenced by a
// directory entry but not crawled.
type ExternalServer struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// Up reports whether the liveness probe connected.
	Up bool `json:"up"`

	// Probed is false while the probe is still pending (or was never sent
	// because the crawl was cancelled first).
	Probed bool `json:"probed"`
}

// Key returns the server key of the record.
func (e ExternalServer) Key() ServerKey {
	return ServerKey{Host: e.Host, Port: e.Port}
}

// Statistics is the aggregate record of one crawl.
//
// The crawler is the only writer. A Statistics value must not be shared
// between crawls; create one with NewStatistics for every run.
type Statistics struct {
	// RunID uniquely identifies the crawl run in logs and reports.
	RunID string `json:"run_id"`

	// Host and Port name the crawled server.
	Host string `json:"host"`
	Port int    `json:"port"`

	// StartSelector is the selector the crawl started from ("" for root).
	StartSelector string `json:"start_selector"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled reports that the crawl stopped early because its context was
	// cancelled or its deadline passed. All other fields hold partial results.
	Cancelled bool `json:"cancelled"`

	// Requests is the number of fetches handed to the transport.
	// Liveness probes are not counted.
	Requests int `json:"requests"`

	// Skipped counts entries filtered out by depth or selector patterns.
	Skipped int `json:"skipped"`

	// Directories, TextFiles and BinaryFiles list discovered selectors in
	// the order they were recorded. Each resource appears at most once.
	Directories []string `json:"directories"`
	TextFiles   []string `json:"text_files"`
	BinaryFiles []string `json:"binary_files"`

	SmallestText   *TextFileStat `json:"smallest_text,omitempty"`
	LargestText    *FileStat     `json:"largest_text,omitempty"`
	SmallestBinary *FileStat     `json:"smallest_binary,omitempty"`
	LargestBinary  *FileStat     `json:"largest_binary,omitempty"`

	// Errors lists every recorded error in the order it was observed.
	Errors []CrawlError `json:"errors"`

	// ExternalServers lists external servers in first-reference order.
	ExternalServers []ExternalServer `json:"external_servers"`

	externalIndex map[ServerKey]int
}

// NewStatistics creates an empty Statistics for a crawl of host:port.
func NewStatistics(host string, port int) *Statistics {
	return &Statistics{
		RunID:           uuid.NewString(),
		Host:            host,
		Port:            port,
		Directories:     make([]string, 0),
		TextFiles:       make([]string, 0),
		BinaryFiles:     make([]string, 0),
		Errors:          make([]CrawlError, 0),
		ExternalServers: make([]ExternalServer, 0),
		externalIndex:   make(map[ServerKey]int),
	}
}

// RecordDirectory appends a discovered directory selector.
func (s *Statistics) RecordDirectory(selector string) {
	s.Directories = append(s.Directories, selector)
}

// RecordText records a fetched text file and updates the text extremes.
//
// snapshot is called only when the file becomes the new smallest text file,
// so content is materialized for at most one candidate at a time.
func (s *Statistics) RecordText(path string, size int64, snapshot func() string) {
	s.TextFiles = append(s.TextFiles, path)

	if s.SmallestText == nil || size < s.SmallestText.Size {
		content := ""
		if snapshot != nil {
			content = snapshot()
		}
		s.SmallestText = &TextFileStat{
			FileStat: FileStat{Path: path, Size: size},
			Content:  content,
		}
	}
	if s.LargestText == nil || size > s.LargestText.Size {
		s.LargestText = &FileStat{Path: path, Size: size}
	}
}

// RecordBinary records a fetched binary file and updates the binary extremes.
func (s *Statistics) RecordBinary(path string, size int64) {
	s.BinaryFiles = append(s.BinaryFiles, path)

	if s.SmallestBinary == nil || size < s.SmallestBinary.Size {
		s.SmallestBinary = &FileStat{Path: path, Size: size}
	}
	if s.LargestBinary == nil || size > s.LargestBinary.Size {
		s.LargestBinary = &FileStat{Path: path, Size: size}
	}
}

// AddError appends an error record.
func (s *Statistics) AddError(e CrawlError) {
	s.Errors = append(s.Errors, e)
}

// ReserveExternal registers an external server before it is probed.
// It returns false if the server was already registered, in which case the
// caller must not probe it again.
func (s *Statistics) ReserveExternal(key ServerKey) bool {
	if s.externalIndex == nil {
		s.externalIndex = make(map[ServerKey]int)
	}
	if _, ok := s.externalIndex[key]; ok {
		return false
	}
	s.externalIndex[key] = len(s.ExternalServers)
	s.ExternalServers = append(s.ExternalServers, ExternalServer{Host: key.Host, Port: key.Port})
	return true
}

// SetExternalStatus stores the probe result for a reserved server.
// The first result wins; later calls for the same key are ignored.
func (s *Statistics) SetExternalStatus(key ServerKey, up bool) {
	s.ReserveExternal(key)
	idx := s.externalIndex[key]
	if s.ExternalServers[idx].Probed {
		return
	}
	s.ExternalServers[idx].Up = up
	s.ExternalServers[idx].Probed = true
}

// External returns the record for key, if one exists.
func (s *Statistics) External(key ServerKey) (ExternalServer, bool) {
	idx, ok := s.externalIndex[key]
	if !ok {
		return ExternalServer{}, false
	}
	return s.ExternalServers[idx], true
}

// DirectoryCount returns the number of discovered directories.
func (s *Statistics) DirectoryCount() int {
	return len(s.Directories)
}

// TextFileCount returns the number of fetched text files.
func (s *Statistics) TextFileCount() int {
	return len(s.TextFiles)
}

// BinaryFileCount returns the number of fetched binary files.
func (s *Statistics) BinaryFileCount() int {
	return len(s.BinaryFiles)
}

// ErrorCountByKind returns how many errors of each kind were recorded.
func (s *Statistics) ErrorCountByKind() map[ErrorKind]int {
	counts := make(map[ErrorKind]int)
	for _, e := range s.Errors {
		counts[e.Kind]++
	}
	return counts
}

// Duration returns how long the crawl took. It is zero until the crawl
// has finished.
func (s *Statistics) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
