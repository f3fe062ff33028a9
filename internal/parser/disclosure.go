package parser

import (
	"regexp"
	"strings"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

var (
	// checkbox or trailing answer tokens: "[x] yes", "(X) NO", "... Yes"
	reYes = regexp.MustCompile(`(?i)(\[\s*x\s*\]|\(\s*x\s*\))\s*yes\b|\byes\b\s*$`)
	reNo  = regexp.MustCompile(`(?i)(\[\s*x\s*\]|\(\s*x\s*\))\s*no\b|\bno\b\s*$`)
	// question-ish lines: "Are you aware of ...", "Has there been ...", "?"
	reQuestion = regexp.MustCompile(`(?i)^(are you aware|has there been|have you|do you know|is there)|\?`)
)

// ParseDisclosureAnswers extracts one answer per checklist category that the
// disclosure text actually addresses. The first matching question line per
// category wins; later mentions are assumed to be elaboration.
func (p *Parser) ParseDisclosureAnswers(text string) []entity.DisclosureAnswer {
	found := make(map[constants.Category]entity.DisclosureAnswer)

	for pageIdx, pageText := range strings.Split(text, "\f") {
		page := pageIdx + 1
		for _, line := range strings.Split(pageText, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || !reQuestion.MatchString(trimmed) {
				continue
			}
			lower := strings.ToLower(trimmed)
			for _, cat := range constants.Checklist {
				if _, done := found[cat]; done {
					continue
				}
				if !matchesAny(lower, categoryKeywords[cat]) {
					continue
				}
				found[cat] = entity.DisclosureAnswer{
					Category: cat,
					Answer:   classifyAnswer(trimmed),
					Page:     page,
				}
			}
		}
	}

	// checklist order, not map order
	answers := make([]entity.DisclosureAnswer, 0, len(found))
	for _, cat := range constants.Checklist {
		if a, ok := found[cat]; ok {
			answers = append(answers, a)
		}
	}
	p.logger.Info("parser.answers", "count", len(answers))
	return answers
}

// classifyAnswer reduces a question line to yes/no, or keeps the free text
// when the seller wrote something in between.
func classifyAnswer(line string) string {
	switch {
	case reNo.MatchString(line):
		return "no"
	case reYes.MatchString(line):
		return "yes"
	}
	return clip(strings.TrimSpace(line), 240)
}
