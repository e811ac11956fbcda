package enrich

import (
	"regexp"
	"strings"
)

// Raw titles come straight from filenames and messy upstream tags:
// "Artist_-_Song (Official Video) [HQ] 320kbps.mp3". NormalizeTitle boils
// such a string down to a stable cache key; SuperClean goes further and is
// only ever used as a fallback search term, never as a key.

var noiseTokens = []string{
	"official", "video", "audio", "lyric", "lyrics", "live", "visualizer",
	"hq", "hd", "4k", "mv", "remaster", "remastered", "kbps", "explicit",
	"cover art", "full album",
}

var (
	bracketRe   = regexp.MustCompile(`[(\[{][^)\]}]*[)\]}]`)
	featRe      = regexp.MustCompile(`(?i)\b(feat\.?|ft\.?|featuring|vs\.?)\b.*$`)
	extRe       = regexp.MustCompile(`(?i)\.(mp3|m4a|flac|wav|ogg|oga|aac|wma|opus|aiff?)$`)
	bitrateRe   = regexp.MustCompile(`(?i)\b\d{2,3}\s*(kbps|k)\b`)
	spaceRe     = regexp.MustCompile(`\s+`)
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9 ]+`)
	trailDotsRe = regexp.MustCompile(`(\.{2,}|…+)$`)
)

func isNoise(content string) bool {
	lowered := strings.ToLower(content)
	for _, tok := range noiseTokens {
		if strings.Contains(lowered, tok) {
			return true
		}
	}
	return bitrateRe.MatchString(lowered)
}

// NormalizeTitle derives the cache key for a raw title. The result is a
// fixed point: NormalizeTitle(NormalizeTitle(s)) == NormalizeTitle(s).
func NormalizeTitle(raw string) string {
	s := extRe.ReplaceAllString(raw, "")

	// Drop bracketed annotations that are noise ("(Official Video)",
	// "[HQ]"); keep meaningful ones ("(acoustic)" stays).
	s = bracketRe.ReplaceAllStringFunc(s, func(seg string) string {
		if isNoise(seg) {
			return ""
		}
		return seg
	})

	// Cut featuring-artist suffixes and everything after them.
	s = featRe.ReplaceAllString(s, "")

	s = bitrateRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	s = trailDotsRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(strings.ToLower(s))
}

// SuperClean strips every bracketed segment and every non-alphanumeric
// character. More aggressive than NormalizeTitle and therefore lossy; used
// only as a last-resort search term.
func SuperClean(raw string) string {
	s := extRe.ReplaceAllString(raw, "")
	s = bracketRe.ReplaceAllString(s, "")
	s = featRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FirstWords returns the first n whitespace-separated words of s.
func FirstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
