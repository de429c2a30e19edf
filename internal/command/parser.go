// Package command implements intent parsing on final voice transcripts.
// It checks a transcript against an ordered set of regex patterns and maps it
// to a structured weather command: a lookup for a named city, or a lookup for
// the wearer's current location.
//
// Pattern order matters: specific phrasings ("weather in X") are tried before
// looser ones ("X weather") so that a loose pattern never captures an
// over-greedy city string. Ties are broken by list order, not by longest
// match.
package command

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnrecognized is returned by [Parser.Parse] when no pattern matches, or
// when the only captured location is a generic term such as "here".
var ErrUnrecognized = errors.New("command: not understood")

// Kind classifies a parsed command.
type Kind int

const (
	// KindCurrentLocation requests weather for the wearer's position.
	KindCurrentLocation Kind = iota

	// KindCityLookup requests weather for a named city.
	KindCityLookup
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCurrentLocation:
		return "CURRENT_LOCATION"
	case KindCityLookup:
		return "CITY_LOOKUP"
	default:
		return "UNKNOWN"
	}
}

// Command is the structured outcome of parsing one transcript.
type Command struct {
	// Kind is the requested lookup type.
	Kind Kind

	// City is the captured city name. Set only when Kind is [KindCityLookup];
	// trimmed, never a generic location term.
	City string

	// Pattern is the name of the pattern that matched, for logging.
	Pattern string
}

// Pattern pairs a compiled regex with a human-readable label. City patterns
// capture the candidate city as submatch 1; current-location patterns carry
// no capture groups.
type Pattern struct {
	// Name is a human-readable label for logging.
	Name string

	// Regex is the compiled pattern, matched against the normalized
	// (lower-cased, trimmed) transcript.
	Regex *regexp.Regexp
}

// genericTerms are phrases that refer to "here" rather than naming a place.
// A captured city equal to one of these is never treated as a literal city.
var genericTerms = map[string]struct{}{
	"here":             {},
	"there":            {},
	"this place":       {},
	"my location":      {},
	"current location": {},
}

// stopCapture matches captures that are question or time words rather than
// place names. The loose "X weather" pattern would otherwise swallow
// phrasings like "current weather" or "what's the weather"; a stop capture
// makes the pattern fall through so the current-location phrasings get their
// turn.
var stopCapture = regexp.MustCompile(`^(?:what|what's|what is|how|how's|how is|tell me|show me|current|today|today's|the)\b`)

// Parser maps final transcripts to weather commands.
//
// Parse is a pure function of its input — the Parser holds only compiled
// patterns and the policy flag, so it is safe for concurrent use.
type Parser struct {
	requireExplicitCity bool
	cityPatterns        []Pattern
	currentPatterns     []Pattern
}

// New creates a Parser. When requireExplicitCity is true the parser demands a
// city in every command: the current-location fallback phrasings ("what's the
// weather", …) and generic location terms fail with [ErrUnrecognized] instead
// of resolving to a current-location lookup.
func New(requireExplicitCity bool) *Parser {
	return &Parser{
		requireExplicitCity: requireExplicitCity,
		cityPatterns:        cityPatterns(),
		currentPatterns:     currentPatterns(),
	}
}

// Parse maps text to a [Command]. The first matching pattern wins.
// Fails with [ErrUnrecognized] when nothing matches.
func (p *Parser) Parse(text string) (Command, error) {
	norm := normalize(text)
	if norm == "" {
		return Command{}, ErrUnrecognized
	}

	for _, pat := range p.cityPatterns {
		m := pat.Regex.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		city := strings.TrimSpace(m[1])
		if city == "" {
			continue
		}
		if _, generic := genericTerms[city]; generic {
			// "weather in here" names no real place. Treat it as a
			// current-location request when policy allows.
			if p.requireExplicitCity {
				return Command{}, ErrUnrecognized
			}
			return Command{Kind: KindCurrentLocation, Pattern: pat.Name}, nil
		}
		if stopCapture.MatchString(city) {
			continue
		}
		return Command{Kind: KindCityLookup, City: city, Pattern: pat.Name}, nil
	}

	if !p.requireExplicitCity {
		for _, pat := range p.currentPatterns {
			if pat.Regex.MatchString(norm) {
				return Command{Kind: KindCurrentLocation, Pattern: pat.Name}, nil
			}
		}
	}

	return Command{}, ErrUnrecognized
}

// normalize lower-cases text, trims surrounding whitespace, and strips
// trailing punctuation left over from speech transcription.
func normalize(text string) string {
	norm := strings.ToLower(strings.TrimSpace(text))
	return strings.TrimRight(norm, " .,!?")
}

// cityPatterns returns the ordered list of location-capturing patterns.
func cityPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "whats-the-weather-in",
			Regex: regexp.MustCompile(`^what(?:'s| is) the weather (?:like )?(?:in|for) (.+)$`),
		},
		{
			Name:  "tell-me-the-weather-in",
			Regex: regexp.MustCompile(`^tell me the weather (?:in|for) (.+)$`),
		},
		{
			Name:  "hows-the-weather-in",
			Regex: regexp.MustCompile(`^how(?:'s| is) the weather (?:in|for) (.+)$`),
		},
		{
			Name:  "weather-in",
			Regex: regexp.MustCompile(`^weather in (.+)$`),
		},
		{
			Name:  "weather-for",
			Regex: regexp.MustCompile(`^weather for (.+)$`),
		},
		{
			Name:  "city-weather",
			Regex: regexp.MustCompile(`^(.+?) weather$`),
		},
	}
}

// currentPatterns returns the general current-location phrasings tried after
// every city pattern has failed.
func currentPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "whats-the-weather",
			Regex: regexp.MustCompile(`^what(?:'s| is) the weather(?: like)?$`),
		},
		{
			Name:  "current-weather",
			Regex: regexp.MustCompile(`^current weather$`),
		},
		{
			Name:  "weather-conditions",
			Regex: regexp.MustCompile(`^weather conditions$`),
		},
		{
			Name:  "hows-the-weather",
			Regex: regexp.MustCompile(`^how(?:'s| is) the weather$`),
		},
		{
			Name:  "weather-today",
			Regex: regexp.MustCompile(`^weather today$`),
		},
		{
			Name:  "todays-weather",
			Regex: regexp.MustCompile(`^today's weather$`),
		},
	}
}
