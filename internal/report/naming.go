package report

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultNamingPattern yields names like consultation_report_20250303_141500.
const DefaultNamingPattern = "consultation_report_{date}_{time}"

// Filename applies pattern and appends ext. Supported tokens are {date}
// (20060102), {time} (150405), {datetime} and {account}.
func Filename(pattern, account string, timestamp time.Time, ext string) string {
	if pattern == "" {
		pattern = DefaultNamingPattern
	}

	result := pattern
	result = strings.ReplaceAll(result, "{datetime}", timestamp.Format("20060102_150405"))
	result = strings.ReplaceAll(result, "{date}", timestamp.Format("20060102"))
	result = strings.ReplaceAll(result, "{time}", timestamp.Format("150405"))
	result = strings.ReplaceAll(result, "{account}", account)

	result = SanitizeFilename(result)
	if !strings.HasSuffix(result, ext) {
		result += ext
	}
	return result
}

var unsafeFilenameChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	";", "_",
	"&", "_",
	"$", "_",
	"#", "_",
	"%", "_",
	"@", "_",
	"!", "_",
	"`", "_",
	"~", "_",
	"^", "_",
	"'", "_",
	"\n", "_",
	"\r", "_",
	"\t", "_",
)

// SanitizeFilename replaces characters that are unsafe in file names and
// limits the length to 255 bytes.
func SanitizeFilename(filename string) string {
	filename = unsafeFilenameChars.Replace(strings.TrimSpace(filename))

	const maxLength = 255
	if len(filename) > maxLength {
		ext := filepath.Ext(filename)
		filename = strings.ToValidUTF8(filename[:maxLength-len(ext)], "") + ext
	}
	return filename
}
