package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Entity is one grouped span returned by a named-entity tagger.
type Entity struct {
	Group string
	Word  string
	Score float64
	Start int
}

// EntityTagger runs named-entity recognition over text.
type EntityTagger interface {
	Tag(ctx context.Context, text string) ([]Entity, error)
}

// placeGroups are the entity categories accepted as place candidates.
var placeGroups = map[string]bool{
	"LOC":  true,
	"ORG":  true,
	"PER":  true,
	"MISC": true,
	"GPE":  true,
}

// EntityExtractor keeps tagged entities in text order and requires at least two of them.
type EntityExtractor struct {
	tagger EntityTagger
}

func NewEntityExtractor(tagger EntityTagger) *EntityExtractor {
	return &EntityExtractor{tagger: tagger}
}

func (e *EntityExtractor) Name() string { return "ner" }

func (e *EntityExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	entities, err := e.tagger.Tag(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("entity tagging: %w", err)
	}

	sort.SliceStable(entities, func(i, j int) bool { return entities[i].Start < entities[j].Start })

	var places []string
	for _, ent := range entities {
		if !placeGroups[strings.ToUpper(ent.Group)] {
			continue
		}
		word := strings.TrimSpace(ent.Word)
		if word == "" {
			continue
		}
		places = append(places, word)
	}
	if len(places) < 2 {
		return nil, ErrInsufficientLocations
	}
	return places, nil
}
