package graph

import "testing"

func TestSanitizeRelTypeUppercasesAndStrips(t *testing.T) {
	if got := sanitizeRelType("has_concept"); got != "HAS_CONCEPT" {
		t.Fatalf("got %q", got)
	}
	if got := sanitizeRelType("weird-type!!"); got != "WEIRDTYPE" {
		t.Fatalf("got %q", got)
	}
	if got := sanitizeRelType(""); got != "RELATED_TO" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestFileToMapRoundTrip(t *testing.T) {
	f := FileNode{
		Path:         "src/main.go",
		Project:      "demo",
		QualityScore: 0.82,
		Language:     "go",
		ContentHash:  "deadbeef",
		EnrichedAt:   "2026-01-01T00:00:00Z",
	}
	props := fileToMap(f)
	got := fileFromProps(props)
	if got != f {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, f)
	}
}

func TestEntityToMapRoundTrip(t *testing.T) {
	e := EntityNode{ID: "e1", Name: "Parser", Type: "class"}
	props := entityToMap(e)
	if props["id"] != e.ID || props["name"] != e.Name || props["type"] != e.Type {
		t.Fatalf("unexpected props: %+v", props)
	}
}

func TestLabelCaseIsExact(t *testing.T) {
	// I3: label case is exact — File, Directory, PROJECT.
	cases := map[string]string{
		LabelFile:      "File",
		LabelDirectory: "Directory",
		LabelProject:   "PROJECT",
		LabelEntity:    "Entity",
		LabelConcept:   "Concept",
		LabelTheme:     "Theme",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestEnrichmentBatchSize(t *testing.T) {
	if EnrichmentBatchSize != 50 {
		t.Fatalf("enrichment batch size must be 50, got %d", EnrichmentBatchSize)
	}
}
