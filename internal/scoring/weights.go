package scoring

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gambia-creative/assessment/pkg/logger"
)

//go:embed default_weights.yaml
var defaultWeights []byte

// LookupMatch records how a sector label was resolved.
type LookupMatch int

const (
	MatchExact LookupMatch = iota
	MatchCaseInsensitive
	MatchDefault
)

func (m LookupMatch) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchCaseInsensitive:
		return "case_insensitive"
	case MatchDefault:
		return "default"
	default:
		return "unknown"
	}
}

type weightsFile struct {
	Default SectorWeightVector            `yaml:"default"`
	Sectors map[string]SectorWeightVector `yaml:"sectors"`
}

// WeightTable maps sector names to weight vectors. Read-only after construction.
type WeightTable struct {
	sectors  map[string]SectorWeightVector
	folded   map[string]string
	defaults SectorWeightVector
}

// NewWeightTable validates every vector; a table that fails validation is a
// configuration error.
func NewWeightTable(sectors map[string]SectorWeightVector, defaults SectorWeightVector) (*WeightTable, error) {
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("default weights: %w", err)
	}

	t := &WeightTable{
		sectors:  make(map[string]SectorWeightVector, len(sectors)),
		folded:   make(map[string]string, len(sectors)),
		defaults: defaults,
	}

	for name, vec := range sectors {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty sector name", ErrInvalidWeights)
		}
		if err := vec.Validate(); err != nil {
			return nil, fmt.Errorf("sector %q: %w", name, err)
		}
		key := strings.ToLower(name)
		if other, dup := t.folded[key]; dup {
			return nil, fmt.Errorf("%w: sectors %q and %q differ only by case", ErrInvalidWeights, other, name)
		}
		t.sectors[name] = vec
		t.folded[key] = name
	}

	return t, nil
}

func DefaultWeightTable() (*WeightTable, error) {
	return ParseWeightTable(defaultWeights)
}

func LoadWeightTable(path string) (*WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}

	table, err := ParseWeightTable(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load weights %s: %w", path, err)
	}

	logger.Info("Sector weights loaded",
		zap.String("path", path),
		zap.Int("sectors", len(table.sectors)),
	)
	return table, nil
}

func ParseWeightTable(data []byte) (*WeightTable, error) {
	var file weightsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse weights: %w", err)
	}
	return NewWeightTable(file.Sectors, file.Default)
}

// Lookup resolves a sector by exact name, then case-insensitively, then falls
// back to the default vector.
func (t *WeightTable) Lookup(sector string) (SectorWeightVector, string, LookupMatch) {
	if vec, ok := t.sectors[sector]; ok {
		return vec, sector, MatchExact
	}

	trimmed := strings.TrimSpace(sector)
	if name, ok := t.folded[strings.ToLower(trimmed)]; ok {
		return t.sectors[name], name, MatchCaseInsensitive
	}

	return t.defaults, "", MatchDefault
}

func (t *WeightTable) Default() SectorWeightVector {
	return t.defaults
}

// Sectors returns the configured sector names sorted.
func (t *WeightTable) Sectors() []string {
	names := make([]string, 0, len(t.sectors))
	for name := range t.sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *WeightTable) Vectors() map[string]SectorWeightVector {
	out := make(map[string]SectorWeightVector, len(t.sectors))
	for name, vec := range t.sectors {
		out[name] = vec
	}
	return out
}
