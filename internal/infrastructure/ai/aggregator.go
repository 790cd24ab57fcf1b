package ai

import (
	"strings"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// NewAggregator returns an empty aggregator for one stream. sink may be nil.
func NewAggregator(mode domain.OutputMode, sink domain.StreamWriter) ports.Aggregator {
	if mode == domain.ModeSections {
		return &sectionAggregator{sink: sink}
	}
	return &concatAggregator{sink: sink}
}

// concatAggregator joins fragments in arrival order with no separator.
type concatAggregator struct {
	text strings.Builder
	sink domain.StreamWriter
}

func (a *concatAggregator) Add(contents []string) {
	for _, content := range contents {
		a.text.WriteString(content)
		emit(a.sink, content)
	}
}

func (a *concatAggregator) Result() domain.CommandOutput {
	done(a.sink)
	return domain.CommandOutput{
		Text:     strings.TrimSpace(a.text.String()),
		Sections: []domain.Section{},
	}
}

// sectionAggregator turns every fragment into a section labeled with the fragment itself.
// The range spans the label, not a position in a larger document.
type sectionAggregator struct {
	sections []domain.Section
	sink     domain.StreamWriter
}

func (a *sectionAggregator) Add(contents []string) {
	for _, content := range contents {
		a.sections = append(a.sections, domain.Section{
			Label: content,
			Range: domain.Range{Start: 0, End: len(content)},
		})
		emit(a.sink, content)
	}
}

func (a *sectionAggregator) Result() domain.CommandOutput {
	done(a.sink)
	sections := make([]domain.Section, len(a.sections))
	copy(sections, a.sections)
	return domain.CommandOutput{
		Text:     domain.SectionsHeading,
		Sections: sections,
	}
}

func emit(sink domain.StreamWriter, content string) {
	if sink != nil {
		sink.WriteChunk(content)
	}
}

func done(sink domain.StreamWriter) {
	if sink != nil {
		sink.Done()
	}
}
