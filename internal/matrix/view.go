package matrix

import "github.com/sgeisler/testinator/internal/domain"

// planView is the serialized shape of a Plan, used by `--plan`.
type planView struct {
	Mode      string        `yaml:"mode" json:"mode"`
	TotalJobs int           `yaml:"total_jobs" json:"total_jobs"`
	Rust      []versionView `yaml:"rust" json:"rust"`
}

type versionView struct {
	Name     string               `yaml:"name" json:"name"`
	Pins     []domain.PinningRule `yaml:"requires_pinning,omitempty" json:"requires_pinning,omitempty"`
	Features []string             `yaml:"features" json:"features"`
}

// View returns a serializable summary of the plan.
func (p *Plan) View() any {
	view := planView{Mode: p.Mode.String(), TotalJobs: p.TotalJobs()}
	for _, vp := range p.Versions {
		vv := versionView{Name: vp.Version.Name, Pins: vp.Version.Pins}
		for _, job := range vp.Jobs {
			vv.Features = append(vv.Features, job.Combination.String())
		}
		view.Rust = append(view.Rust, vv)
	}
	return view
}

// MarshalYAML implements yaml.Marshaler.
func (p *Plan) MarshalYAML() (any, error) {
	return p.View(), nil
}
