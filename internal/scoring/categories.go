// Package scoring converts raw 0-10 digital maturity category scores into
// sector-weighted totals on a 0-70 external scale, optionally extended by a
// 0-30 survey score to 0-100.
package scoring

import (
	"errors"
	"fmt"
)

type Category string

const (
	SocialMedia         Category = "social_media"
	Website             Category = "website"
	VisualContent       Category = "visual_content"
	Discoverability     Category = "discoverability"
	DigitalSales        Category = "digital_sales"
	PlatformIntegration Category = "platform_integration"
)

// Categories lists the six categories in canonical order.
var Categories = []Category{
	SocialMedia,
	Website,
	VisualContent,
	Discoverability,
	DigitalSales,
	PlatformIntegration,
}

const (
	MinCategoryScore = 0.0
	MaxCategoryScore = 10.0
	WeightSum        = 7.0
	MaxExternal      = MaxCategoryScore * WeightSum
	MaxSurvey        = 30.0
	MaxCombined      = MaxExternal + MaxSurvey

	weightTolerance = 1e-6
)

var (
	ErrScoreOutOfRange  = errors.New("category score outside [0,10]")
	ErrInvalidWeights   = errors.New("invalid sector weights")
	ErrSurveyOutOfRange = errors.New("survey score outside [0,30]")
)

// RawCategoryScores are the six unweighted 0-10 assessment scores.
type RawCategoryScores struct {
	SocialMedia         float64 `json:"social_media" yaml:"social_media"`
	Website             float64 `json:"website" yaml:"website"`
	VisualContent       float64 `json:"visual_content" yaml:"visual_content"`
	Discoverability     float64 `json:"discoverability" yaml:"discoverability"`
	DigitalSales        float64 `json:"digital_sales" yaml:"digital_sales"`
	PlatformIntegration float64 `json:"platform_integration" yaml:"platform_integration"`
}

// NewRawCategoryScores fails fast when any score is outside [0,10].
func NewRawCategoryScores(socialMedia, website, visualContent, discoverability, digitalSales, platformIntegration float64) (RawCategoryScores, error) {
	raw := RawCategoryScores{
		SocialMedia:         socialMedia,
		Website:             website,
		VisualContent:       visualContent,
		Discoverability:     discoverability,
		DigitalSales:        digitalSales,
		PlatformIntegration: platformIntegration,
	}
	if err := raw.Validate(); err != nil {
		return RawCategoryScores{}, err
	}
	return raw, nil
}

func (r RawCategoryScores) Validate() error {
	for _, c := range Categories {
		v := r.Get(c)
		if v < MinCategoryScore || v > MaxCategoryScore {
			return fmt.Errorf("%w: %s = %v", ErrScoreOutOfRange, c, v)
		}
	}
	return nil
}

func (r RawCategoryScores) Get(c Category) float64 {
	switch c {
	case SocialMedia:
		return r.SocialMedia
	case Website:
		return r.Website
	case VisualContent:
		return r.VisualContent
	case Discoverability:
		return r.Discoverability
	case DigitalSales:
		return r.DigitalSales
	case PlatformIntegration:
		return r.PlatformIntegration
	}
	return 0
}

// Clamped returns a copy with every score limited to [0,10].
func (r RawCategoryScores) Clamped() RawCategoryScores {
	clamp := func(v float64) float64 {
		if v < MinCategoryScore {
			return MinCategoryScore
		}
		if v > MaxCategoryScore {
			return MaxCategoryScore
		}
		return v
	}
	return RawCategoryScores{
		SocialMedia:         clamp(r.SocialMedia),
		Website:             clamp(r.Website),
		VisualContent:       clamp(r.VisualContent),
		Discoverability:     clamp(r.Discoverability),
		DigitalSales:        clamp(r.DigitalSales),
		PlatformIntegration: clamp(r.PlatformIntegration),
	}
}

// SectorWeightVector holds one multiplier per category. Valid vectors sum to 7.
type SectorWeightVector struct {
	SocialMedia         float64 `json:"social_media" yaml:"social_media"`
	Website             float64 `json:"website" yaml:"website"`
	VisualContent       float64 `json:"visual_content" yaml:"visual_content"`
	Discoverability     float64 `json:"discoverability" yaml:"discoverability"`
	DigitalSales        float64 `json:"digital_sales" yaml:"digital_sales"`
	PlatformIntegration float64 `json:"platform_integration" yaml:"platform_integration"`
}

func NewSectorWeightVector(socialMedia, website, visualContent, discoverability, digitalSales, platformIntegration float64) (SectorWeightVector, error) {
	w := SectorWeightVector{
		SocialMedia:         socialMedia,
		Website:             website,
		VisualContent:       visualContent,
		Discoverability:     discoverability,
		DigitalSales:        digitalSales,
		PlatformIntegration: platformIntegration,
	}
	if err := w.Validate(); err != nil {
		return SectorWeightVector{}, err
	}
	return w, nil
}

func (w SectorWeightVector) Validate() error {
	for _, c := range Categories {
		if w.Get(c) < 0 {
			return fmt.Errorf("%w: %s weight %v is negative", ErrInvalidWeights, c, w.Get(c))
		}
	}
	if sum := w.Sum(); sum < WeightSum-weightTolerance || sum > WeightSum+weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want %v", ErrInvalidWeights, sum, WeightSum)
	}
	return nil
}

func (w SectorWeightVector) Get(c Category) float64 {
	switch c {
	case SocialMedia:
		return w.SocialMedia
	case Website:
		return w.Website
	case VisualContent:
		return w.VisualContent
	case Discoverability:
		return w.Discoverability
	case DigitalSales:
		return w.DigitalSales
	case PlatformIntegration:
		return w.PlatformIntegration
	}
	return 0
}

func (w SectorWeightVector) Sum() float64 {
	var sum float64
	for _, c := range Categories {
		sum += w.Get(c)
	}
	return sum
}
