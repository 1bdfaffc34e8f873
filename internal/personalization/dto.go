// internal/personalization/dto.go
package personalization

// DTOs for API requests/responses

// OutfitSnapshotDTO mirrors OutfitSnapshot on the wire. Colors are
// required: a feedback event without colors carries no learnable signal.
type OutfitSnapshotDTO struct {
	Colors   []string `json:"colors" validate:"required,min=1,dive,min=1"`
	Style    string   `json:"style" validate:"omitempty,max=60"`
	Occasion string   `json:"occasion" validate:"omitempty,max=60"`
	Fabric   string   `json:"fabric,omitempty" validate:"omitempty,max=60"`
	Items    []string `json:"items,omitempty"`
}

func (d *OutfitSnapshotDTO) toSnapshot() *OutfitSnapshot {
	return &OutfitSnapshot{
		Colors:   d.Colors,
		Style:    d.Style,
		Occasion: d.Occasion,
		Fabric:   d.Fabric,
		Items:    d.Items,
	}
}

// CandidateDTO is deliberately lenient: a candidate missing colors or
// style is scored with neutral defaults rather than rejected, so one bad
// candidate cannot sink a batch.
type CandidateDTO struct {
	ID          string   `json:"id"`
	Colors      []string `json:"colors"`
	Style       string   `json:"style"`
	Occasion    string   `json:"occasion"`
	Fabric      string   `json:"fabric,omitempty"`
	Items       []string `json:"items,omitempty"`
	Description string   `json:"description,omitempty"`
}

type RecommendRequestDTO struct {
	Occasion   string         `json:"occasion,omitempty" validate:"omitempty,max=60"`
	Candidates []CandidateDTO `json:"candidates" validate:"required,min=1"`
}

type LikeRequestDTO struct {
	Outfit      OutfitSnapshotDTO `json:"outfit" validate:"required"`
	Exploratory bool              `json:"exploratory,omitempty"`
}

type WearRequestDTO struct {
	Outfit      OutfitSnapshotDTO `json:"outfit" validate:"required"`
	Exploratory bool              `json:"exploratory,omitempty"`
}

type IgnoreSessionRequestDTO struct {
	Outfits []OutfitSnapshotDTO `json:"outfits" validate:"required,min=2"`
}

type ShoppingClickRequestDTO struct {
	Platform string             `json:"platform" validate:"required,max=60"`
	Outfit   *OutfitSnapshotDTO `json:"outfit,omitempty"`
}

type HardBlockRequestDTO struct {
	Dimension string `json:"dimension" validate:"required,oneof=color style pattern fit"`
	Value     string `json:"value" validate:"required,max=60"`
	Reason    string `json:"reason,omitempty" validate:"omitempty,max=200"`
}
