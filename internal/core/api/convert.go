package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruleref/ruleref/internal/core/models"
)

// legacyConfidence is the fixed placeholder confidence for answers
// synthesized from the legacy chunk list, which carries no scoring.
const legacyConfidence = 0.8

// convertLegacyResponse lifts a flat chunk list into the structured shape:
// the summary concatenates chunk titles and content, each chunk becomes one
// non-collapsible section, and sources come from chunk provenance.
func convertLegacyResponse(legacy legacyQueryResponse, query, gameSystem string) *StructuredChatResponse {
	var summary string
	if len(legacy.Results) == 0 {
		summary = "No specific rules found for your query."
	} else {
		parts := make([]string, 0, len(legacy.Results))
		for _, chunk := range legacy.Results {
			parts = append(parts, fmt.Sprintf("**%s**\n%s", chunk.Title, chunk.Content))
		}
		summary = strings.Join(parts, "\n\n")
	}

	sections := make([]models.ResponseSection, 0, len(legacy.Results))
	sources := make([]models.ResponseSource, 0, len(legacy.Results))
	for i, chunk := range legacy.Results {
		sections = append(sections, models.ResponseSection{
			ID:          fmt.Sprintf("section_%d", i),
			Title:       chunk.Title,
			Content:     chunk.Content,
			Type:        "explanation",
			Level:       1,
			Collapsible: false,
			Expanded:    true,
		})

		reference := "Unknown"
		if chunk.Metadata != nil && chunk.Metadata.SourceFile != "" {
			reference = chunk.Metadata.SourceFile
		}
		sources = append(sources, models.ResponseSource{
			Type:      "rulebook",
			Reference: reference,
		})
	}

	return &StructuredChatResponse{
		Query:      query,
		GameSystem: gameSystem,
		Structured: &models.StructuredResponse{
			ID: uuid.NewString(),
			Content: models.ResponseContent{
				Summary:  models.Summary{Text: summary, Confidence: legacyConfidence},
				Sections: sections,
				Sources:  sources,
			},
		},
		SearchMethod: "legacy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}
