package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/doeshing/rag-go/internal/domain"
)

// Renderer prints query results. Colors are dropped automatically when stdout is not a
// terminal or NO_COLOR is set.
type Renderer struct {
	out     io.Writer
	heading *color.Color
	label   *color.Color
	dim     *color.Color
}

// NewRenderer builds a renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:     out,
		heading: color.New(color.FgCyan, color.Bold),
		label:   color.New(color.FgGreen),
		dim:     color.New(color.FgHiBlack),
	}
}

// Output prints the answer text, followed by one line per section.
func (r *Renderer) Output(out domain.CommandOutput) {
	if len(out.Sections) == 0 {
		fmt.Fprintln(r.out, out.Text)
		return
	}
	r.heading.Fprintln(r.out, out.Text)
	for i, section := range out.Sections {
		fmt.Fprintf(r.out, "%s %s\n", r.dim.Sprintf("[%d]", i+1), r.label.Sprint(section.Label))
	}
}

// JSON prints the output as an indented JSON document.
func (r *Renderer) JSON(out domain.CommandOutput) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// RenderError prints err to w. Pipeline errors also get a hint for the failing stage.
func RenderError(w io.Writer, err error) {
	fmt.Fprintln(w, color.New(color.FgRed, color.Bold).Sprint("error:"), err)
	var perr *domain.Error
	if errors.As(err, &perr) {
		if hint := stageHint(perr.Stage); hint != "" {
			fmt.Fprintln(w, color.New(color.FgHiBlack).Sprint(hint))
		}
	}
}

func stageHint(stage domain.Stage) string {
	switch stage {
	case domain.StageRetrieve:
		return "check retrieval.url or run with --no-retrieve; `rag doctor` probes the endpoint"
	case domain.StageComplete:
		return "is the inference service running? `rag doctor` probes completion.url"
	default:
		return ""
	}
}

func renderDoctorReport(out io.Writer, report domain.HealthReport) {
	colors := map[domain.HealthStatus]*color.Color{
		domain.HealthOK:    color.New(color.FgGreen),
		domain.HealthWarn:  color.New(color.FgYellow),
		domain.HealthError: color.New(color.FgRed),
	}
	for _, check := range report.Checks {
		status := fmt.Sprintf("[%s]", check.Status)
		if c, ok := colors[check.Status]; ok {
			status = c.Sprint(status)
		}
		fmt.Fprintf(out, "%s %s - %s\n", status, check.Name, check.Details)
	}
}
