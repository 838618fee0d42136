// ABOUTME: Icon system with Nerd Font detection and Unicode fallback
// ABOUTME: Course, role, and action glyphs used across the LMS screens

package icons

import (
	"os"
	"strings"
	"sync"
)

var (
	useNerdFonts     bool
	nerdFontDetected sync.Once
)

// detectNerdFonts checks if Nerd Fonts should be used
func detectNerdFonts() bool {
	// Explicit override via environment variable
	if env := os.Getenv("LMS_NERD_FONTS"); env != "" {
		return env == "1" || strings.ToLower(env) == "true"
	}

	// Check for terminals known to commonly have Nerd Fonts
	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	// iTerm2, Alacritty, WezTerm, Kitty typically have Nerd Fonts
	nerdFontTerminals := []string{
		"iTerm.app",
		"alacritty",
		"WezTerm",
		"kitty",
		"ghostty",
	}

	for _, t := range nerdFontTerminals {
		if strings.Contains(termProgram, t) || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}

	// Check for common Nerd Font environment indicators
	if os.Getenv("NERD_FONTS") == "1" {
		return true
	}

	// Default to Unicode fallback for maximum compatibility
	return false
}

// HasNerdFonts returns true if Nerd Fonts are available
func HasNerdFonts() bool {
	nerdFontDetected.Do(func() {
		useNerdFonts = detectNerdFonts()
	})
	return useNerdFonts
}

// Icon represents an icon with Nerd Font and Unicode fallback variants
type Icon struct {
	NerdFont string
	Fallback string
}

// String returns the appropriate icon based on font availability
func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

// Icon definitions - Nerd Font codepoints with Unicode fallbacks
var (
	// Status indicators
	CheckOK  = Icon{"", "✓"} // nf-fa-check_circle
	Warning  = Icon{"", "⚠"} // nf-fa-warning
	Critical = Icon{"", "✗"} // nf-fa-times_circle
	Info     = Icon{"", "ℹ"} // nf-fa-info_circle

	// Domain
	Course   = Icon{"", "▤"} // nf-fa-book
	Teacher  = Icon{"", "♟"} // nf-fa-chalkboard_teacher
	Student  = Icon{"", "●"} // nf-fa-user_graduate
	Grade    = Icon{"", "★"} // nf-fa-star
	Roster   = Icon{"", "☰"} // nf-fa-users
	Enrolled = Icon{"", "✓"} // nf-fa-check
	Lock     = Icon{"", "■"} // nf-fa-lock

	// Actions
	Refresh = Icon{"", "↻"} // nf-fa-refresh
	Add     = Icon{"", "+"} // nf-fa-plus
	Back    = Icon{"", "←"} // nf-fa-arrow_left
	Quit    = Icon{"", "×"} // nf-fa-sign_out

	// Application
	App = Icon{"", "◈"} // nf-fa-graduation_cap
)
