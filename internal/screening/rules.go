// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package screening

import (
	"fmt"
	"time"

	"github.com/tomtom215/listingguard/internal/textnorm"
	"github.com/tomtom215/listingguard/internal/validation"
)

// History policies applied when the submission history cannot be read.
const (
	HistoryPolicySkip = "skip"
	HistoryPolicyDeny = "deny"
)

// volumeMonthWindow is the widest volume window; history lookback must cover it.
const volumeMonthWindow = 30 * 24 * time.Hour

// Rules is the complete, externally tunable screening configuration.
// It is loaded under the "screening" key and compiled once into a Policy.
//
// Environment Variables (scalar fields only; lists come from the config file):
//   - SCREENING_VOLUME_DAILY_LIMIT, SCREENING_VOLUME_WEEKLY_LIMIT, SCREENING_VOLUME_MONTHLY_LIMIT
//   - SCREENING_ESCALATION_TEMP_BLOCK_DAYS, SCREENING_ESCALATION_WARNINGS_BEFORE_TEMP_BLOCK
//   - SCREENING_ESCALATION_WARNINGS_BEFORE_PERM_BLOCK
//   - SCREENING_HISTORY_UNAVAILABLE_POLICY: skip or deny
type Rules struct {
	Volume     VolumeRules     `koanf:"volume" json:"volume"`
	Duplicate  DuplicateRules  `koanf:"duplicate" json:"duplicate"`
	Keywords   KeywordRules    `koanf:"keywords" json:"keywords"`
	URLs       URLRules        `koanf:"urls" json:"urls"`
	Price      PriceRules      `koanf:"price" json:"price"`
	Contact    ContactRules    `koanf:"contact" json:"contact"`
	Escalation EscalationRules `koanf:"escalation" json:"escalation"`

	HistoryLookback          time.Duration `koanf:"history_lookback" json:"history_lookback" validate:"gt=0"`
	HistoryTimeout           time.Duration `koanf:"history_timeout" json:"history_timeout" validate:"gt=0"`
	HistoryUnavailablePolicy string        `koanf:"history_unavailable_policy" json:"history_unavailable_policy" validate:"required,oneof=skip deny"`
}

// VolumeRules caps how many listings an actor may post per window.
// A window fires when the actor's prior count reaches its limit.
type VolumeRules struct {
	DailyLimit   int `koanf:"daily_limit" json:"daily_limit" validate:"gte=1"`
	WeeklyLimit  int `koanf:"weekly_limit" json:"weekly_limit" validate:"gtefield=DailyLimit"`
	MonthlyLimit int `koanf:"monthly_limit" json:"monthly_limit" validate:"gtefield=WeeklyLimit"`
}

// DuplicateRules are strict lower bounds on Jaccard similarity.
type DuplicateRules struct {
	Window             time.Duration `koanf:"window" json:"window" validate:"gt=0"`
	TitleOnlyThreshold float64       `koanf:"title_only_threshold" json:"title_only_threshold" validate:"gt=0,lte=1"`
	TitleThreshold     float64       `koanf:"title_threshold" json:"title_threshold" validate:"gt=0,lte=1"`
	ContentThreshold   float64       `koanf:"content_threshold" json:"content_threshold" validate:"gt=0,lte=1"`
}

// KeywordRules configures the commercial vocabulary scan.
type KeywordRules struct {
	Terms         []string `koanf:"terms" json:"terms" validate:"min=1,dive,required"`
	MediumMatches int      `koanf:"medium_matches" json:"medium_matches" validate:"gte=1"`
	HighMatches   int      `koanf:"high_matches" json:"high_matches" validate:"gtfield=MediumMatches"`
}

// NamedPattern is a regular expression with a label reported in alert metadata.
type NamedPattern struct {
	Name string `koanf:"name" json:"name" validate:"required"`
	Expr string `koanf:"expr" json:"expr" validate:"required,regexp"`
}

// URLRules lists the suspicious link patterns.
type URLRules struct {
	Patterns []NamedPattern `koanf:"patterns" json:"patterns" validate:"min=1,dive"`
}

// PriceRules holds per-category floors and the global ceiling.
type PriceRules struct {
	CategoryFloors map[string]float64 `koanf:"category_floors" json:"category_floors" validate:"dive,keys,required,endkeys,gt=0"`
	Ceiling        float64            `koanf:"ceiling" json:"ceiling" validate:"gt=0"`
}

// ContactRules configures off-platform contact detection.
type ContactRules struct {
	Phrases             []string `koanf:"phrases" json:"phrases" validate:"min=1,dive,required,regexp"`
	PhonePatterns       []string `koanf:"phone_patterns" json:"phone_patterns" validate:"min=1,dive,required,regexp"`
	PhoneCountThreshold int      `koanf:"phone_count_threshold" json:"phone_count_threshold" validate:"gte=0"`
}

// EscalationRules drives the decision aggregator.
type EscalationRules struct {
	TempBlockDays           int `koanf:"temp_block_days" json:"temp_block_days" validate:"gte=1"`
	WarningsBeforeTempBlock int `koanf:"warnings_before_temp_block" json:"warnings_before_temp_block" validate:"gte=1"`
	WarningsBeforePermBlock int `koanf:"warnings_before_perm_block" json:"warnings_before_perm_block" validate:"gtfield=WarningsBeforeTempBlock"`
	CriticalBlockDays       int `koanf:"critical_block_days" json:"critical_block_days" validate:"gte=1"`
}

// DefaultRules returns the shipped rule set.
func DefaultRules() Rules {
	return Rules{
		Volume: VolumeRules{
			DailyLimit:   3,
			WeeklyLimit:  10,
			MonthlyLimit: 25,
		},
		Duplicate: DuplicateRules{
			Window:             30 * 24 * time.Hour,
			TitleOnlyThreshold: 0.9,
			TitleThreshold:     0.8,
			ContentThreshold:   0.7,
		},
		Keywords: KeywordRules{
			Terms:         defaultKeywords(),
			MediumMatches: 3,
			HighMatches:   5,
		},
		URLs: URLRules{
			Patterns: []NamedPattern{
				{Name: "whatsapp", Expr: `(?i)\b(wa\.me/|chat\.whatsapp\.com/|api\.whatsapp\.com/)`},
				{Name: "telegram", Expr: `(?i)\b(t\.me/|telegram\.me/|telegram\.org/)`},
				{Name: "shortener", Expr: `(?i)\b(bit\.ly|tinyurl\.com|goo\.gl|ow\.ly|is\.gd|cutt\.ly|rebrand\.ly|t\.co)/`},
				{Name: "competitor", Expr: `(?i)\b(mercadolibre\.com|olx\.[a-z]{2,3}|craigslist\.org|facebook\.com/marketplace)`},
			},
		},
		Price: PriceRules{
			CategoryFloors: map[string]float64{
				"vehicles":      500,
				"real estate":   5000,
				"electronics":   20,
				"machinery":     1000,
				"jewelry":       50,
				"industrial":    250,
				"office supply": 1,
			},
			Ceiling: 10_000_000,
		},
		Contact: ContactRules{
			Phrases: []string{
				`(?i)\b(contact|call|text|message|email|write to)\s+me\s+(at|on|via|through)\b`,
				`(?i)\b(whats\s?app|telegram|signal|viber)\s*(me\b|:|\+?\d)`,
				`(?i)\b(outside|off)\s+(of\s+)?(the\s+)?(platform|site|app)\b`,
				`(?i)\b(my|mi)\s+(e-?mail|correo)\s*(is|es|:)`,
				`(?i)\b(escr[ií]beme|ll[aá]mame|cont[aá]ctame)\s+(al|por|en)\b`,
				`(?i)\bfuera\s+de\s+la\s+(plataforma|p[aá]gina)\b`,
			},
			PhonePatterns: []string{
				`\+?\d{1,3}[\s.-]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{2}[\s.-]?\d{2}`,
				`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`,
				`\d{3}[\s.-]\d{2}[\s.-]\d{2}`,
			},
			PhoneCountThreshold: 2,
		},
		Escalation: EscalationRules{
			TempBlockDays:           7,
			WarningsBeforeTempBlock: 3,
			WarningsBeforePermBlock: 5,
			CriticalBlockDays:       30,
		},
		HistoryLookback:          30 * 24 * time.Hour,
		HistoryTimeout:           2 * time.Second,
		HistoryUnavailablePolicy: HistoryPolicySkip,
	}
}

func defaultKeywords() []string {
	return []string{
		// English
		"wholesale", "bulk order", "distributor", "reseller", "dropshipping",
		"free shipping", "discount", "limited offer", "best price", "buy now",
		"promo code", "factory price", "minimum order", "cash only",
		// Spanish
		"mayorista", "al por mayor", "distribuidor", "revendedor", "envío gratis",
		"descuento", "oferta limitada", "mejor precio", "compra ya",
		"código promocional", "precio de fábrica", "pedido mínimo", "solo efectivo",
	}
}

// Validate checks struct tags and the constraints that span fields.
// Every error wraps ErrInvalidRules.
func (r *Rules) Validate() error {
	if verr := validation.ValidateStruct(r); verr != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRules, verr.Error())
	}

	need := volumeMonthWindow
	if r.Duplicate.Window > need {
		need = r.Duplicate.Window
	}
	if r.HistoryLookback < need {
		return fmt.Errorf("%w: history_lookback %s must cover %s", ErrInvalidRules, r.HistoryLookback, need)
	}

	for _, term := range r.Keywords.Terms {
		if textnorm.Normalize(term) == "" {
			return fmt.Errorf("%w: keyword %q is empty after normalization", ErrInvalidRules, term)
		}
	}
	for category := range r.Price.CategoryFloors {
		if textnorm.Normalize(category) == "" {
			return fmt.Errorf("%w: price category %q is empty after normalization", ErrInvalidRules, category)
		}
	}

	seen := make(map[string]bool, len(r.URLs.Patterns))
	for _, p := range r.URLs.Patterns {
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate url pattern name %q", ErrInvalidRules, p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}
