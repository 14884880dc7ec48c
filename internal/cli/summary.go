package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/schollz/progressbar/v3"

	"github.com/alnah/go-podscribe/internal/format"
	"github.com/alnah/go-podscribe/internal/lang"
	"github.com/alnah/go-podscribe/internal/transcribe"
)

// runSummary describes a finished transcription.
// Its JSON form is the machine-readable line printed with --format json.
type runSummary struct {
	Status            string   `json:"status"`
	TranscriptPath    string   `json:"transcript_path"`
	AudioPath         string   `json:"audio_path"`
	Source            string   `json:"source"`
	Model             string   `json:"model"`
	Language          string   `json:"language"`
	Device            string   `json:"device"`
	Backend           string   `json:"backend"`
	Chunked           bool     `json:"chunked"`
	Segments          int      `json:"segments"`
	TranscribeSeconds float64  `json:"transcribe_seconds"`
	DownloadSeconds   *float64 `json:"download_seconds,omitempty"`
}

// writeJSONSummary prints s as one compact JSON line.
func writeJSONSummary(w io.Writer, s runSummary) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// renderPanel renders a one-column rounded table with a title.
func renderPanel(title string, rows [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	for _, r := range rows {
		tw.AppendRow(table.Row{r[0], r[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignLeft},
	})
	return tw.Render()
}

// transcriptionPanel renders the summary table shown on stderr.
func transcriptionPanel(s runSummary, noTiming bool) string {
	rows := [][2]string{
		{"Transcript", s.TranscriptPath},
		{"Audio", s.AudioPath + fileSizeSuffix(s.AudioPath)},
		{"Backend", s.Backend},
	}
	if s.Model != "" {
		rows = append(rows, [2]string{"Model", s.Model})
	}
	rows = append(rows, [2]string{"Language", lang.DisplayName(s.Language)})
	if s.Chunked {
		rows = append(rows, [2]string{"Segments", strconv.Itoa(s.Segments)})
	}
	if !noTiming {
		rows = append(rows, [2]string{"Transcribe", format.Elapsed(seconds(s.TranscribeSeconds))})
		if s.DownloadSeconds != nil {
			rows = append(rows, [2]string{"Download", format.Elapsed(seconds(*s.DownloadSeconds))})
		}
	}
	return renderPanel("Transcription complete", rows)
}

// downloadPanel renders the result of the download command.
func downloadPanel(path string, elapsed time.Duration, noTiming bool) string {
	rows := [][2]string{{"Saved", path + fileSizeSuffix(path)}}
	if !noTiming {
		rows = append(rows, [2]string{"Download", format.Elapsed(elapsed)})
	}
	return renderPanel("Download complete", rows)
}

func fileSizeSuffix(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return " (" + format.Size(info.Size()) + ")"
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ---------------------------------------------------------------------------
// Segment progress
// ---------------------------------------------------------------------------

// segmentProgress reports the chunked fallback to the user.
// On a terminal it draws a progress bar; otherwise it prints one line per segment.
type segmentProgress struct {
	w        io.Writer
	terminal bool
	bar      *progressbar.ProgressBar
}

func newSegmentProgress(w io.Writer, terminal bool) *segmentProgress {
	return &segmentProgress{w: w, terminal: terminal}
}

// notice is called once when the whole-file attempt hits a capacity limit.
func (p *segmentProgress) notice(chunk time.Duration) func(error) {
	return func(err error) {
		fmt.Fprintf(p.w, "Backend ran out of capacity (%v)\n", err)
		fmt.Fprintf(p.w, "Splitting audio into %s segments...\n", format.DurationHuman(chunk))
	}
}

// segment is called after each segment is transcribed.
func (p *segmentProgress) segment(ev transcribe.SegmentEvent) {
	if !p.terminal {
		fmt.Fprintf(p.w, "  Segment %d/%d done (%s, %s)\n",
			ev.Segment.Index+1, ev.Total, format.Duration(ev.Segment.Duration), format.Elapsed(ev.Elapsed))
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("Transcribing segments"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Add(1)
}

// finish clears the bar, if one was drawn.
func (p *segmentProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
