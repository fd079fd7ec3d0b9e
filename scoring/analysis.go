package scoring

import (
	"sort"

	"github.com/gitgauge/gitgauge/gateway"
)

// RepositoryAnalysis is the aggregate view over a user's repositories.
type RepositoryAnalysis struct {
	RepoCount        int                        `json:"repo_count"`
	TotalStars       int                        `json:"total_stars"`
	TotalForks       int                        `json:"total_forks"`
	TotalSize        int                        `json:"total_size"`
	Languages        map[string]int             `json:"languages"`
	Topics           []string                   `json:"topics"`
	TopStarred       *gateway.RepositorySummary `json:"top_starred,omitempty"`
	RecentlyUpdated  *gateway.RepositorySummary `json:"recently_updated,omitempty"`
	AvgRepoQuality   float64                    `json:"avg_repo_quality"`
	HasProfileReadme bool                       `json:"has_profile_readme"`
}

// AggregateRepositories builds the repository analysis from an
// already-fetched snapshot set.
func AggregateRepositories(repos []gateway.RepositorySummary) RepositoryAnalysis {
	analysis := RepositoryAnalysis{
		RepoCount: len(repos),
		Languages: make(map[string]int),
		Topics:    []string{},
	}
	if len(repos) == 0 {
		return analysis
	}

	topicSet := make(map[string]struct{})
	topStarred := repos[0]
	mostRecent := repos[0]
	for _, r := range repos {
		analysis.TotalStars += r.Stars
		analysis.TotalForks += r.Forks
		analysis.TotalSize += r.Size
		if r.Language != "" {
			analysis.Languages[r.Language]++
		}
		for _, t := range r.Topics {
			topicSet[t] = struct{}{}
		}
		if r.Stars > topStarred.Stars {
			topStarred = r
		}
		if r.UpdatedAt.After(mostRecent.UpdatedAt) {
			mostRecent = r
		}
	}

	for t := range topicSet {
		analysis.Topics = append(analysis.Topics, t)
	}
	sort.Strings(analysis.Topics)

	analysis.TopStarred = &topStarred
	analysis.RecentlyUpdated = &mostRecent
	analysis.AvgRepoQuality = round1(float64(analysis.TotalStars) / float64(len(repos)))
	return analysis
}
