package domain

// EffectGroup controls where an effect is offered in the editor toolbar.
type EffectGroup string

const (
	EffectGroupPrimary   EffectGroup = "primary"
	EffectGroupSecondary EffectGroup = "secondary"
)

// Effect identifies one AI operation the transformation provider can apply.
type Effect struct {
	ID            string      `json:"id" yaml:"id"`
	Name          string      `json:"name" yaml:"name"`
	Description   string      `json:"description,omitempty" yaml:"description"`
	Group         EffectGroup `json:"group" yaml:"group"`
	AcceptsPrompt bool        `json:"accepts_prompt" yaml:"accepts_prompt"`
	// Template is the fragment used when a prompt is supplied; "{prompt}" is
	// replaced by the encoded prompt. Empty means the bare id is always used.
	Template string `json:"-" yaml:"template"`
}
