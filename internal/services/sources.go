package services

import "learningdash-backend/internal/models"

// sourceDescriptions backs the static capability listing.
var sourceDescriptions = map[models.SourceType]string{
	models.SourceYouTubeVideo: "YouTube videos with metadata and transcript extraction",
	models.SourceArticle:      "Web articles with author and publish-date extraction",
	models.SourceGitHubRepo:   "GitHub repositories with stars, language and README",
	models.SourcePDFDocument:  "PDF documents with page count and text extraction",
	models.SourceTweet:        "Tweets / X posts with author and text",
}

// ListSources returns the supported source types with the metadata fields each
// one requires. The listing is static; no I/O involved.
func ListSources() []models.SourceCapability {
	out := make([]models.SourceCapability, 0, len(models.AllSourceTypes))
	for _, st := range models.AllSourceTypes {
		out = append(out, models.SourceCapability{
			Type:           st,
			Description:    sourceDescriptions[st],
			RequiredFields: models.RequiredMetadataFields(st),
		})
	}
	return out
}
