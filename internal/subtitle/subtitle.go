// Package subtitle formats timed cues and maintains the two per-session
// subtitle documents: a WebVTT track for soft subtitles and an ASS track
// read live by the hardsub renderer.
package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// Cue is one timed subtitle entry. Offsets are measured from stream-relative
// time zero at session start.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// assHeader is written once at session start. PlayRes matches the style
// coordinates; the single Default style is what the renderer's ass filter
// applies to every Dialogue line.
const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,60,&H0000FFFF,&H000000FF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,3,2,2,30,30,60,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

const vttHeader = "WEBVTT\n\n"

// FormatVTTTime renders an offset as H:MM:SS.mmm.
func FormatVTTTime(d time.Duration) string {
	secs := d.Seconds()
	hours := int(secs) / 3600
	minutes := (int(secs) % 3600) / 60
	rem := secs - float64(hours*3600+minutes*60)
	return fmt.Sprintf("%d:%02d:%06.3f", hours, minutes, rem)
}

// FormatASSTime renders an offset as H:MM:SS.cc (centisecond precision).
func FormatASSTime(d time.Duration) string {
	secs := d.Seconds()
	hours := int(secs) / 3600
	minutes := (int(secs) % 3600) / 60
	rem := secs - float64(hours*3600+minutes*60)
	return fmt.Sprintf("%d:%02d:%05.2f", hours, minutes, rem)
}

// EscapeASS replaces characters that are structurally significant in an ASS
// Dialogue line. Commas separate Dialogue fields and newlines terminate
// events, so both become the ASS line break \N.
func EscapeASS(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", `\N`)
	text = strings.ReplaceAll(text, ",", `\N`)
	return text
}

// VTTCue renders one WebVTT cue block.
func VTTCue(c Cue) string {
	return fmt.Sprintf("%s --> %s\n%s\n\n", FormatVTTTime(c.Start), FormatVTTTime(c.End), c.Text)
}

// ASSDialogue renders one ASS Dialogue event line (without trailing newline).
func ASSDialogue(c Cue) string {
	return fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s",
		FormatASSTime(c.Start), FormatASSTime(c.End), EscapeASS(c.Text))
}
