package player

import (
	"regexp"
	"strings"
)

// Trailing parenthetical qualifiers like "(12)" or "(remastered)". Applied
// repeatedly so stacked qualifiers all come off.
var sourceQualifierRe = regexp.MustCompile(`\s*\([^)]*\)$`)

// canonicalSource reduces a source label to its comparison form: trailing
// parentheticals stripped, case folded.
func canonicalSource(label string) string {
	s := strings.TrimSpace(label)
	for {
		trimmed := strings.TrimSpace(sourceQualifierRe.ReplaceAllString(s, ""))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return strings.ToLower(s)
}

// SetSourceName records where the current playback context came from and
// prepends it to the source lineage. Entries that only differ by a
// trailing qualifier count as the same source: the old entry is removed
// and the newest label wins.
func (p *Player) SetSourceName(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}

	p.mu.Lock()
	p.sourceName = name

	canon := canonicalSource(name)
	history := make([]string, 0, len(p.sourceHistory)+1)
	history = append(history, name)
	for _, h := range p.sourceHistory {
		if canonicalSource(h) == canon {
			continue
		}
		history = append(history, h)
	}
	if len(history) > maxSourceHistory {
		history = history[:maxSourceHistory]
	}
	p.sourceHistory = history
	p.mu.Unlock()

	p.saveSource()
	p.notify()
}
