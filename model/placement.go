package model

import (
	"fmt"
	"strings"
)

type Placement struct {
	Cloud  string `yaml:"cloud" json:"cloud"`
	Region string `yaml:"region" json:"region"`
	Zone   string `yaml:"zone" json:"zone"`
}

func (p Placement) String() string {
	return p.Cloud + "." + p.Region + "." + p.Zone
}

// ParsePlacements parses "cloud.region.zone[,cloud.region.zone...]".
// An empty string yields no placements.
func ParsePlacements(s string) ([]Placement, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Placement
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		parts := strings.Split(item, ".")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, &ValidationError{
				Field:   "placement",
				Message: fmt.Sprintf("invalid placement %q: want cloud.region.zone", item),
			}
		}
		out = append(out, Placement{Cloud: parts[0], Region: parts[1], Zone: parts[2]})
	}
	return out, nil
}

// PlacementFor assigns placements round-robin by index, wrapping when there
// are more nodes than entries.
func PlacementFor(placements []Placement, index int) (Placement, bool) {
	if len(placements) == 0 || index < 1 {
		return Placement{}, false
	}
	return placements[(index-1)%len(placements)], true
}
