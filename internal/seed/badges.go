// Package seed loads badge definitions from YAML and applies them to the badge catalog.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/gamification/internal/domain"
)

type badgeFile struct {
	Badges []badgeDoc `yaml:"badges"`
}

type badgeDoc struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	IconURL     string    `yaml:"icon_url"`
	Active      *bool     `yaml:"active"`
	Rules       []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Type      string  `yaml:"type"`
	Condition string  `yaml:"condition"`
	Value     float64 `yaml:"value"`
}

// Catalog is the subset of domain.BadgeCatalog the seeder writes through.
type Catalog interface {
	CreateBadge(ctx context.Context, input domain.BadgeInput) (domain.Badge, error)
}

// ParseBadges decodes a badge seed document. Every badge needs a stable id so that
// re-running the seed updates definitions in place.
func ParseBadges(r io.Reader) ([]domain.BadgeInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file badgeFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode badge seed: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Badges))
	inputs := make([]domain.BadgeInput, 0, len(file.Badges))
	for i, doc := range file.Badges {
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			return nil, fmt.Errorf("badges[%d] (%s): id is required", i, doc.Name)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("badges[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}

		rules := make([]domain.BadgeRule, 0, len(doc.Rules))
		for _, r := range doc.Rules {
			rules = append(rules, domain.BadgeRule{Type: domain.RuleType(r.Type), Condition: r.Condition, Value: r.Value})
		}
		inputs = append(inputs, domain.BadgeInput{
			ID:          id,
			Name:        doc.Name,
			Description: doc.Description,
			IconURL:     doc.IconURL,
			Rules:       rules,
			Inactive:    doc.Active != nil && !*doc.Active,
		})
	}
	return inputs, nil
}

// LoadFile parses the badge seed at path.
func LoadFile(path string) ([]domain.BadgeInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseBadges(f)
}

// Apply upserts every badge. Invalid definitions are reported together and do not
// stop the remaining badges from being applied.
func Apply(ctx context.Context, catalog Catalog, inputs []domain.BadgeInput, logger *log.Logger) (int, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[seed] ", log.LstdFlags|log.Lshortfile)
	}
	var (
		applied int
		errs    error
	)
	for _, input := range inputs {
		badge, err := catalog.CreateBadge(ctx, input)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("badge %s: %w", input.ID, err))
			continue
		}
		applied++
		logger.Printf("seeded badge %s (%s, active=%t)", badge.ID, badge.Name, badge.IsActive)
	}
	return applied, errs
}
