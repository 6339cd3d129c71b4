package usecase

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

type keywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// matches uses substring containment, so "worked" matches "work".
func (g keywordGroup) matches(lowerText string) bool {
	for _, k := range g.Keywords {
		if strings.Contains(lowerText, k) {
			return true
		}
	}
	return false
}

type keywordTables struct {
	PositiveWords  []string       `yaml:"positive_words"`
	NegativeWords  []string       `yaml:"negative_words"`
	Emotions       []keywordGroup `yaml:"emotions"`
	DetectTopics   []keywordGroup `yaml:"detect_topics"`
	FillTopics     []keywordGroup `yaml:"fill_topics"`
	GenericTags    []string       `yaml:"generic_tags"`
	HedgingPhrases []string       `yaml:"hedging_phrases"`
}

var keywords = mustLoadKeywords(keywordsYAML)

func mustLoadKeywords(b []byte) *keywordTables {
	var t keywordTables
	if err := yaml.Unmarshal(b, &t); err != nil {
		panic(fmt.Sprintf("journal: invalid keywords.yaml: %v", err))
	}
	return &t
}

func countContained(lowerText string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lowerText, w) {
			n++
		}
	}
	return n
}
