package workflow

import (
	"regexp"
	"strings"
	"time"
)

// timestampLayout is the fixed format used for the {timestamp} token and for
// generated image filenames: YYYY-MM-DD_HHMMSS.
const timestampLayout = "2006-01-02_150405"

// braceTokenPattern matches {token} placeholders in a path template.
var braceTokenPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// wasTimeTokenPattern matches the WAS node suite's [time(format)] tokens,
// where format uses strftime directives.
var wasTimeTokenPattern = regexp.MustCompile(`\[time\(([^)]+)\)\]`)

// strftimeToGo maps the strftime directives that appear in save-path tokens
// onto Go reference-time layout fragments.
var strftimeToGo = strings.NewReplacer(
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
)

// SubstituteTokens expands time-based placeholders in a path string using the
// supplied clock value. Two token families are recognized: brace tokens
// ({timestamp}, {date}, {time}) and the WAS-style [time(strftime)] token used
// by Image Save nodes. Unrecognized brace tokens are left verbatim so that
// literal braces in filenames survive substitution.
func SubstituteTokens(path string, now time.Time) string {
	out := braceTokenPattern.ReplaceAllStringFunc(path, func(match string) string {
		switch match {
		case "{timestamp}":
			return now.Format(timestampLayout)
		case "{date}":
			return now.Format("2006-01-02")
		case "{time}":
			return now.Format("150405")
		default:
			return match
		}
	})

	return wasTimeTokenPattern.ReplaceAllStringFunc(out, func(match string) string {
		format := wasTimeTokenPattern.FindStringSubmatch(match)[1]
		return now.Format(strftimeToGo.Replace(format))
	})
}

// Timestamp formats the clock value with the fixed filename layout.
func Timestamp(now time.Time) string {
	return now.Format(timestampLayout)
}
