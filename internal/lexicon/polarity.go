package lexicon

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPolarity = errors.New("invalid polarity lexicon")

type PolarityConfig struct {
	Words     map[string]float64 `yaml:"words"`
	Negators  []string           `yaml:"negators"`
	Modifiers map[string]float64 `yaml:"modifiers"`
}

// PolarityLexicon maps words to a polarity in [-1,1] and records negators and
// intensity modifiers. Read-only after construction.
type PolarityLexicon struct {
	words     map[string]float64
	negators  map[string]bool
	modifiers map[string]float64
}

func NewPolarityLexicon(cfg PolarityConfig) (*PolarityLexicon, error) {
	p := &PolarityLexicon{
		words:     make(map[string]float64, len(cfg.Words)),
		negators:  make(map[string]bool, len(cfg.Negators)),
		modifiers: make(map[string]float64, len(cfg.Modifiers)),
	}

	for word, score := range cfg.Words {
		if score < -1 || score > 1 {
			return nil, fmt.Errorf("%w: %q score %v outside [-1,1]", ErrInvalidPolarity, word, score)
		}
		p.words[strings.ToLower(word)] = score
	}
	for _, n := range cfg.Negators {
		p.negators[strings.ToLower(n)] = true
	}
	for word, factor := range cfg.Modifiers {
		if factor <= 0 {
			return nil, fmt.Errorf("%w: modifier %q factor %v must be positive", ErrInvalidPolarity, word, factor)
		}
		p.modifiers[strings.ToLower(word)] = factor
	}

	return p, nil
}

func (p *PolarityLexicon) Score(word string) (float64, bool) {
	s, ok := p.words[word]
	return s, ok
}

func (p *PolarityLexicon) IsNegator(word string) bool {
	return p.negators[word]
}

func (p *PolarityLexicon) Modifier(word string) (float64, bool) {
	f, ok := p.modifiers[word]
	return f, ok
}

func (p *PolarityLexicon) Len() int {
	return len(p.words)
}
