// Package lexicon holds the immutable theme and polarity lexicons used by the
// theme-sentiment analyzer. A Store is built once at startup and shared
// read-only between goroutines.
package lexicon

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gambia-creative/assessment/pkg/logger"
	"github.com/gambia-creative/assessment/pkg/utils"
)

//go:embed default_lexicon.yaml
var defaultLexicon []byte

var (
	ErrInvalidTheme   = errors.New("invalid theme definition")
	ErrDuplicateTheme = errors.New("duplicate theme key")
	ErrEmptyLexicon   = errors.New("lexicon has no themes")
)

// ThemeDefinition is the configured shape of one theme.
type ThemeDefinition struct {
	Key               string   `yaml:"key" json:"key"`
	DisplayName       string   `yaml:"display_name" json:"display_name"`
	Keywords          []string `yaml:"keywords" json:"keywords"`
	ExclusionPatterns []string `yaml:"exclusion_patterns,omitempty" json:"exclusion_patterns,omitempty"`
	Weight            float64  `yaml:"weight" json:"weight"`
}

// Theme is a validated ThemeDefinition with its matchers compiled.
type Theme struct {
	ThemeDefinition

	keywords   []*regexp.Regexp
	exclusions []*regexp.Regexp
}

type fileFormat struct {
	Themes   []ThemeDefinition `yaml:"themes"`
	Polarity *PolarityConfig   `yaml:"polarity"`
}

type Store struct {
	themes   []*Theme
	byKey    map[string]*Theme
	polarity *PolarityLexicon
	version  string
}

// Default returns the store built from the embedded lexicon.
func Default() (*Store, error) {
	return Parse(defaultLexicon)
}

// Load reads a YAML lexicon file. A file without a polarity section falls back
// to the embedded polarity lexicon.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	store, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon %s: %w", path, err)
	}

	logger.Info("Theme lexicon loaded",
		zap.String("path", path),
		zap.Int("themes", store.Len()),
	)

	return store, nil
}

func Parse(data []byte) (*Store, error) {
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	polarityCfg := file.Polarity
	if polarityCfg == nil {
		var fallback fileFormat
		if err := yaml.Unmarshal(defaultLexicon, &fallback); err != nil {
			return nil, fmt.Errorf("failed to parse embedded polarity lexicon: %w", err)
		}
		polarityCfg = fallback.Polarity
	}

	polarity, err := NewPolarityLexicon(*polarityCfg)
	if err != nil {
		return nil, err
	}

	return New(file.Themes, polarity)
}

// New validates the definitions and compiles their matchers.
func New(defs []ThemeDefinition, polarity *PolarityLexicon) (*Store, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyLexicon
	}
	if polarity == nil {
		polarity = &PolarityLexicon{}
	}

	store := &Store{
		themes:   make([]*Theme, 0, len(defs)),
		byKey:    make(map[string]*Theme, len(defs)),
		polarity: polarity,
	}

	for _, def := range defs {
		theme, err := compileTheme(def)
		if err != nil {
			return nil, err
		}
		if _, exists := store.byKey[theme.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTheme, theme.Key)
		}
		store.byKey[theme.Key] = theme
		store.themes = append(store.themes, theme)
	}

	sort.Slice(store.themes, func(i, j int) bool {
		return store.themes[i].Key < store.themes[j].Key
	})

	version, err := json.Marshal(struct {
		Themes   []ThemeDefinition
		Words    map[string]float64
		Negators map[string]bool
		Mods     map[string]float64
	}{store.Definitions(), polarity.words, polarity.negators, polarity.modifiers})
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint lexicon: %w", err)
	}
	store.version = utils.HashString(string(version))

	return store, nil
}

func compileTheme(def ThemeDefinition) (*Theme, error) {
	def.Key = strings.TrimSpace(def.Key)
	if def.Key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidTheme)
	}
	if def.Weight <= 0 {
		return nil, fmt.Errorf("%w: %s has non-positive weight %v", ErrInvalidTheme, def.Key, def.Weight)
	}
	if def.DisplayName == "" {
		def.DisplayName = def.Key
	}

	seen := make(map[string]bool, len(def.Keywords))
	keywords := make([]string, 0, len(def.Keywords))
	for _, kw := range def.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: %s has no keywords", ErrInvalidTheme, def.Key)
	}
	def.Keywords = keywords

	theme := &Theme{ThemeDefinition: def}
	for _, kw := range keywords {
		theme.keywords = append(theme.keywords, keywordPattern(kw))
	}

	for _, pattern := range def.ExclusionPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s exclusion %q: %v", ErrInvalidTheme, def.Key, pattern, err)
		}
		theme.exclusions = append(theme.exclusions, re)
	}

	return theme, nil
}

// keywordPattern matches a keyword as a whole word or phrase, allowing a plural suffix.
// Go's \b is ASCII-only, so boundaries are spelled out as non-letter/digit runes.
func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(keyword) + `(?:s|es)?(?:$|[^\p{L}\p{N}_])`)
}

// StripExclusions blanks out every exclusion pattern so that phrases such as
// "book now" cannot trigger a keyword.
func (t *Theme) StripExclusions(text string) string {
	for _, re := range t.exclusions {
		text = re.ReplaceAllString(text, " ")
	}
	return text
}

// MatchKeywords returns the distinct keywords present in the lower-cased text,
// after exclusions are removed.
func (t *Theme) MatchKeywords(lowerText string) []string {
	if lowerText == "" {
		return nil
	}
	text := t.StripExclusions(lowerText)

	var matched []string
	for i, re := range t.keywords {
		if re.MatchString(text) {
			matched = append(matched, t.Keywords[i])
		}
	}
	return matched
}

// Mentions reports whether the lower-cased text contains any keyword of the theme.
func (t *Theme) Mentions(lowerText string) bool {
	text := t.StripExclusions(lowerText)
	for _, re := range t.keywords {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Themes returns the themes ordered by key.
func (s *Store) Themes() []*Theme {
	out := make([]*Theme, len(s.themes))
	copy(out, s.themes)
	return out
}

func (s *Store) Theme(key string) (*Theme, bool) {
	t, ok := s.byKey[key]
	return t, ok
}

func (s *Store) Keys() []string {
	keys := make([]string, len(s.themes))
	for i, t := range s.themes {
		keys[i] = t.Key
	}
	return keys
}

func (s *Store) Definitions() []ThemeDefinition {
	defs := make([]ThemeDefinition, len(s.themes))
	for i, t := range s.themes {
		def := t.ThemeDefinition
		def.Keywords = append([]string(nil), def.Keywords...)
		def.ExclusionPatterns = append([]string(nil), def.ExclusionPatterns...)
		defs[i] = def
	}
	return defs
}

func (s *Store) Len() int {
	return len(s.themes)
}

// Version fingerprints the themes and polarity words. Stores built from the
// same configuration share a version.
func (s *Store) Version() string {
	return s.version
}

func (s *Store) Polarity() *PolarityLexicon {
	return s.polarity
}
