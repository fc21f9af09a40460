package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finfetch/internal/transcript"
)

func sampleTranscript() *transcript.Transcript {
	return &transcript.Transcript{
		Provider:    "yahoo",
		URL:         "https://finance.example.com/quote/IREN/earnings/IREN-Q1-2026-earnings_call-380008.html",
		Symbol:      "IREN",
		Company:     "Iris Energy Limited",
		Title:       "Iris Energy Limited (IREN) Q1 2026 Earnings Call Transcript",
		Quarter:     "Q1 2026",
		EventDate:   "2026-05-15",
		PublishedAt: time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC),
		Speakers:    []string{"Operator", "Daniel Roberts"},
		Sections: []transcript.Section{
			{Speaker: "Operator", Text: "Good day, and welcome to the conference call."},
			{Speaker: "Daniel Roberts", Role: "Co-Founder", Text: "Thanks for joining us today."},
		},
		FullText: "Good day, and welcome to the conference call.\n\nThanks for joining us today.",
		RawHTML:  "<html>...</html>",
	}
}

func TestTranscriptBasename(t *testing.T) {
	require.Equal(t, "2026-05-15-q1-2026-380008", TranscriptBasename(sampleTranscript()))

	bare := &transcript.Transcript{URL: "https://example.com/call"}
	base := TranscriptBasename(bare)
	require.Contains(t, base, "undated-transcript-")
}

func TestWriteTranscript(t *testing.T) {
	outRoot := t.TempDir()
	paths, err := WriteTranscript(sampleTranscript(), outRoot)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(outRoot, "transcripts", "IREN", "2026-05-15-q1-2026-380008.json"), paths.JSON)
	require.FileExists(t, paths.JSON)
	require.FileExists(t, paths.Markdown)

	raw, err := os.ReadFile(paths.JSON)
	require.NoError(t, err)
	var back transcript.Transcript
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, "IREN", back.Symbol)
	require.Empty(t, back.RawHTML, "page source stays out of the export")

	md, err := os.ReadFile(paths.Markdown)
	require.NoError(t, err)
	require.Contains(t, string(md), "Earnings Call Transcript")
	require.Contains(t, string(md), "## Daniel Roberts (Co-Founder)")
	require.Contains(t, string(md), "**Quarter**: Q1 2026")
}
