package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	t       func(string) string
	version string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		if t != nil {
			f.t = t
		}
	}
}

// WithVersion adds a "Generated by" footer naming the tool version.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a formatter. Labels stay in English unless a
// translator is given.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{t: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder
	t := f.t

	fmt.Fprintf(&b, "# %s\n\n", t("Media Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", t("Generated"), s.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## %s\n\n", t("File"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Path"), s.File.Path)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Container"), s.File.Container)
	fmt.Fprintf(&b, "| %s | %s |\n", t("File Size"), formatBytes(s.File.SizeBytes))
	fmt.Fprintf(&b, "| %s | %.3f s |\n\n", t("Duration"), s.File.Duration)

	fmt.Fprintf(&b, "## %s\n\n", t("Streams"))
	if len(s.Streams) == 0 {
		fmt.Fprintf(&b, "%s\n", t("None"))
	} else {
		fmt.Fprintf(&b, "| # | %s | %s | %s | %s | %s | %s | %s |\n",
			t("Type"), t("Codec"), t("Time Base"), t("Frames"), t("Index"), t("Keyframes"), t("Decoder"))
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, st := range s.Streams {
			index := t("complete")
			if !st.IndexComplete() {
				index = fmt.Sprintf("%d/%d", st.IndexEntries, st.FrameCount)
			}
			decoder := st.Decoder
			if decoder == "" {
				decoder = t("None")
			}
			codec := st.Codec
			if st.Format != "" {
				codec += " (" + st.Format + ")"
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s | %d | %s |\n",
				st.Index, st.Type, codec, st.TimeBase, st.FrameCount, index, st.Keyframes, decoder)
		}
	}

	if f.version != "" {
		fmt.Fprintf(&b, "\n---\n%s framenav %s\n", t("Generated by"), f.version)
	}
	return b.String()
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}
