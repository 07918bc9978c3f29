package scananalysis

import (
	"regexp"
	"strings"
)

// Sections are the structured fields pulled from oracle prose. A nil field
// was not found.
type Sections struct {
	Assessment      *string      `json:"assessment"`
	Abnormalities   *string      `json:"abnormalities"`
	Diagnosis       *string      `json:"diagnosis"`
	Recommendations *string      `json:"recommendations"`
	FollowUp        *string      `json:"followUp"`
	TumorDetails    TumorDetails `json:"tumorDetails"`
}

type TumorDetails struct {
	TumorType  *string `json:"tumorType"`
	Size       *string `json:"size"`
	Location   *string `json:"location"`
	Grade      *string `json:"grade"`
	Malignancy *string `json:"malignancy"`
}

// Extractor turns free text into Sections. Implementations are best effort
// and must not fail.
type Extractor interface {
	Extract(text string) Sections
}

// sectionPattern finds a label with start and takes the body up to the first
// match of end in the remaining text, or to the end of the text.
type sectionPattern struct {
	start *regexp.Regexp
	end   *regexp.Regexp
}

var (
	endBoldOrNumbered = regexp.MustCompile(`\n\*\*|\n\d+\.`)
	endParagraph      = regexp.MustCompile(`\n\n|\n[A-Za-z]`)
	endNumbered       = regexp.MustCompile(`\n\d+\.`)
)

func patternsFor(label string) []sectionPattern {
	l := regexp.QuoteMeta(label)
	return []sectionPattern{
		{regexp.MustCompile(`(?i)\*\*` + l + `\*\*:?\s*`), endBoldOrNumbered},
		{regexp.MustCompile(`(?i)` + l + `:?\s*`), endParagraph},
		{regexp.MustCompile(`(?i)\d+\.\s*\*\*` + l + `\*\*:?\s*`), endNumbered},
	}
}

// LabeledSectionExtractor matches each section by several label aliases,
// each tried with several layouts, first hit wins.
type LabeledSectionExtractor struct {
	assessment      [][]sectionPattern
	abnormalities   [][]sectionPattern
	diagnosis       [][]sectionPattern
	recommendations [][]sectionPattern
	followUp        [][]sectionPattern
}

func NewLabeledSectionExtractor() *LabeledSectionExtractor {
	build := func(labels ...string) [][]sectionPattern {
		out := make([][]sectionPattern, len(labels))
		for i, l := range labels {
			out[i] = patternsFor(l)
		}
		return out
	}
	return &LabeledSectionExtractor{
		assessment:      build("Tumor Detection and Segmentation", "Assessment"),
		abnormalities:   build("Tumor Classification", "Abnormalities"),
		diagnosis:       build("Tumor Characteristics", "Possible Diagnosis", "Diagnosis"),
		recommendations: build("Treatment Recommendations", "Recommendations"),
		followUp:        build("Follow-up Protocol", "Follow-up"),
	}
}

func (e *LabeledSectionExtractor) Extract(text string) Sections {
	return Sections{
		Assessment:      findSection(text, e.assessment),
		Abnormalities:   findSection(text, e.abnormalities),
		Diagnosis:       findSection(text, e.diagnosis),
		Recommendations: findSection(text, e.recommendations),
		FollowUp:        findSection(text, e.followUp),
		TumorDetails:    extractTumorDetails(text),
	}
}

func findSection(text string, aliases [][]sectionPattern) *string {
	for _, patterns := range aliases {
		for _, p := range patterns {
			loc := p.start.FindStringIndex(text)
			if loc == nil {
				continue
			}
			rest := text[loc[1]:]
			if end := p.end.FindStringIndex(rest); end != nil {
				rest = rest[:end[0]]
			}
			if body := strings.TrimSpace(rest); body != "" {
				return &body
			}
		}
	}
	return nil
}

var (
	tumorTypeRe  = regexp.MustCompile(`(?i)(?:tumor type|primary tumor|diagnosis):?\s*([^.\n]+)`)
	sizeRe       = regexp.MustCompile(`(?i)(?:size|dimensions|diameter):?\s*([^.\n]*(?:cm|mm|centimeter|millimeter)[^.\n]*)`)
	locationRe   = regexp.MustCompile(`(?i)(?:location|region|area|situated):?\s*([^.\n]+)`)
	gradeRe      = regexp.MustCompile(`(?i)(?:WHO grade|grade):?\s*([IV]+|\d+)`)
	malignancyRe = regexp.MustCompile(`(?i)(benign|malignant|low.grade|high.grade)`)
)

func extractTumorDetails(text string) TumorDetails {
	return TumorDetails{
		TumorType:  firstGroup(tumorTypeRe, text),
		Size:       firstGroup(sizeRe, text),
		Location:   firstGroup(locationRe, text),
		Grade:      firstGroup(gradeRe, text),
		Malignancy: firstGroup(malignancyRe, text),
	}
}

func firstGroup(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return nil
	}
	return &v
}
