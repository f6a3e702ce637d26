package usecase

import "sort"

// SectionSpec describes one report topic: what the generated text must
// contain and how long it should run.
type SectionSpec struct {
	Topic            string
	Title            string
	RequiredElements []string
	MinWords         int
	MaxWords         int
}

// sectionSpecs is the catalog of report topics.
var sectionSpecs = map[string]SectionSpec{
	"executive_summary": {
		Topic:            "executive_summary",
		Title:            "Executive Summary",
		RequiredElements: []string{"business", "competitor"},
		MinWords:         120,
		MaxWords:         400,
	},
	"competitive_landscape": {
		Topic:            "competitive_landscape",
		Title:            "Competitive Landscape",
		RequiredElements: []string{"follower", "engagement"},
		MinWords:         200,
		MaxWords:         700,
	},
	"content_strategy": {
		Topic:            "content_strategy",
		Title:            "Content Strategy",
		RequiredElements: []string{"post", "format"},
		MinWords:         200,
		MaxWords:         700,
	},
	"community_insights": {
		Topic:            "community_insights",
		Title:            "Community Insights",
		RequiredElements: []string{"sentiment", "audience"},
		MinWords:         150,
		MaxWords:         600,
	},
	"action_plan": {
		Topic:            "action_plan",
		Title:            "Action Plan",
		RequiredElements: []string{"week", "recommend"},
		MinWords:         150,
		MaxWords:         600,
	},
}

// sectionOrder fixes the rendering order of the assembled document,
// independent of generation order.
var sectionOrder = map[string]int{
	"executive_summary":     1,
	"competitive_landscape": 2,
	"content_strategy":      3,
	"community_insights":    4,
	"action_plan":           5,
}

// DefaultTopics returns every known topic in rendering order.
func DefaultTopics() []string {
	topics := make([]string, 0, len(sectionOrder))
	for topic := range sectionOrder {
		topics = append(topics, topic)
	}
	sortTopics(topics)
	return topics
}

// sortTopics orders topics by the stable ordering map; unknown topics sort
// after known ones, alphabetically.
func sortTopics(topics []string) {
	sort.SliceStable(topics, func(i, j int) bool {
		oi, iok := sectionOrder[topics[i]]
		oj, jok := sectionOrder[topics[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok:
			return true
		case jok:
			return false
		default:
			return topics[i] < topics[j]
		}
	})
}

// SpecForTopic returns the section spec, falling back to a permissive
// default for unknown topics.
func SpecForTopic(topic string) SectionSpec {
	if spec, ok := sectionSpecs[topic]; ok {
		return spec
	}
	return SectionSpec{Topic: topic, Title: topic, MinWords: 100, MaxWords: 800}
}
