package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestStatisticsTextExtremes verifies the strict comparison rule for text files.
func TestStatisticsTextExtremes(t *testing.T) {
	t.Parallel()

	t.Run("first file seeds both extremes", func(t *testing.T) {
		t.Parallel()

		s := NewStatistics("example.org", 70)
		s.RecordText("/only", 12, func() string { return "hello world!" })

		if s.SmallestText == nil || s.SmallestText.Path != "/only" {
			t.Fatalf("expected smallest text /only, got %+v", s.SmallestText)
		}
		if s.LargestText == nil || s.LargestText.Path != "/only" {
			t.Fatalf("expected largest text /only, got %+v", s.LargestText)
		}
		if s.SmallestText.Content != "hello world!" {
			t.Errorf("expected snapshot content, got %q", s.SmallestText.Content)
		}
	})

	t.Run("sizes 40 5 5000 5 keep the first size 5 file", func(t *testing.T) {
		t.Parallel()

		s := NewStatistics("example.org", 70)
		files := []struct {
			path string
			size int64
		}{
			{"/a", 40},
			{"/b", 5},
			{"/c", 5000},
			{"/d", 5},
		}
		for _, f := range files {
			s.RecordText(f.path, f.size, func() string { return "content of " + f.path })
		}

		if s.SmallestText.Size != 5 || s.SmallestText.Path != "/b" {
			t.Errorf("expected smallest /b (5), got %s (%d)", s.SmallestText.Path, s.SmallestText.Size)
		}
		if s.SmallestText.Content != "content of /b" {
			t.Errorf("expected content of /b, got %q", s.SmallestText.Content)
		}
		if s.LargestText.Size != 5000 || s.LargestText.Path != "/c" {
			t.Errorf("expected largest /c (5000), got %s (%d)", s.LargestText.Path, s.LargestText.Size)
		}
		if s.TextFileCount() != 4 {
			t.Errorf("expected 4 text files, got %d", s.TextFileCount())
		}
	})

	t.Run("snapshot is only taken for a new smallest file", func(t *testing.T) {
		t.Parallel()

		s := NewStatistics("example.org", 70)
		calls := 0
		snap := func() string {
			calls++
			return ""
		}
		s.RecordText("/a", 10, snap)
		s.RecordText("/b", 20, snap)
		s.RecordText("/c", 10, snap)
		s.RecordText("/d", 3, snap)

		if calls != 2 {
			t.Errorf("expected 2 snapshot calls, got %d", calls)
		}
	})
}

// TestStatisticsBinaryExtremes verifies binary extremes tracking.
func TestStatisticsBinaryExtremes(t *testing.T) {
	t.Parallel()

	s := NewStatistics("example.org", 70)
	s.RecordBinary("/x.bin", 300)
	s.RecordBinary("/y.bin", 0)
	s.RecordBinary("/z.bin", 9000)

	if s.SmallestBinary.Path != "/y.bin" || s.SmallestBinary.Size != 0 {
		t.Errorf("unexpected smallest binary: %+v", s.SmallestBinary)
	}
	if s.LargestBinary.Path != "/z.bin" || s.LargestBinary.Size != 9000 {
		t.Errorf("unexpected largest binary: %+v", s.LargestBinary)
	}
	if s.BinaryFileCount() != 3 {
		t.Errorf("expected 3 binary files, got %d", s.BinaryFileCount())
	}
}

// TestStatisticsExternalServers verifies reservation order and sticky results.
func TestStatisticsExternalServers(t *testing.T) {
	t.Parallel()

	t.Run("reserve rejects duplicates", func(t *testing.T) {
		t.Parallel()

		s := NewStatistics("example.org", 70)
		key := NewServerKey("Other.org", 7070)

		if !s.ReserveExternal(key) {
			t.Fatal("expected first reservation to succeed")
		}
		if s.ReserveExternal(NewServerKey("other.org", 7070)) {
			t.Error("expected case-insensitive duplicate to be rejected")
		}
		if len(s.ExternalServers) != 1 {
			t.Errorf("expected 1 external server, got %d", len(s.ExternalServers))
		}
	})

	t.Run("first probe result is sticky", func(t *testing.T) {
		t.Parallel()

		s := NewStatistics("example.org", 70)
		key := NewServerKey("other.org", 70)
		s.ReserveExternal(key)
		s.SetExternalStatus(key, false)
		s.SetExternalStatus(key, true)

		got, ok := s.External(key)
		if !ok {
			t.Fatal("expected external record")
		}
		if got.Up {
			t.Error("expected first result (down) to stick")
		}
		if !got.Probed {
			t.Error("expected record to be marked probed")
		}
	})

	t.Run("keeps first-reference order", func(t *testing.T) {
		t.Parallel()

		s := NewStatistics("example.org", 70)
		a := NewServerKey("a.org", 70)
		b := NewServerKey("b.org", 70)
		s.ReserveExternal(a)
		s.ReserveExternal(b)
		s.SetExternalStatus(b, true)
		s.SetExternalStatus(a, true)

		if s.ExternalServers[0].Host != "a.org" || s.ExternalServers[1].Host != "b.org" {
			t.Errorf("unexpected order: %+v", s.ExternalServers)
		}
	})
}

// TestStatisticsJSON checks the JSON shape used by the JSON report.
func TestStatisticsJSON(t *testing.T) {
	t.Parallel()

	s := NewStatistics("example.org", 70)
	s.AddError(CrawlError{Kind: ErrorTimeout, Host: "example.org", Port: 70, Selector: "/slow"})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	str := string(data)
	if !strings.Contains(str, `"kind":"timeout"`) {
		t.Errorf("expected error kind encoded by name, got %s", str)
	}
	if strings.Contains(str, "smallest_text") {
		t.Errorf("expected empty extremes to be omitted, got %s", str)
	}
	if s.RunID == "" {
		t.Error("expected run ID to be set")
	}
}

// TestIdentity verifies identity normalization.
func TestIdentity(t *testing.T) {
	t.Parallel()

	a := NewIdentity("Example.ORG", 70, "/docs")
	b := NewIdentity("example.org", 70, "/docs")
	if a != b {
		t.Errorf("expected identities to be equal: %+v vs %+v", a, b)
	}
	if got := a.String(); got != "gopher://example.org:70//docs" {
		t.Errorf("unexpected string form %q", got)
	}
	if got := NewServerKey("::1", 70).String(); got != "[::1]:70" {
		t.Errorf("unexpected IPv6 key %q", got)
	}
}

// TestItemTypeKind verifies item type classification.
func TestItemTypeKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ItemType
		want Kind
	}{
		{'0', KindText},
		{'1', KindDirectory},
		{'3', KindError},
		{'9', KindBinary},
		{'I', KindBinary},
		{'i', KindOther},
		{'h', KindOther},
		{'7', KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			t.Parallel()
			if got := tt.code.Kind(); got != tt.want {
				t.Errorf("Kind(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
