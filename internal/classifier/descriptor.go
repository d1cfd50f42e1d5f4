package classifier

// Descriptor 等级的展示信息, 每个等级固定
type Descriptor struct {
	Tier        Tier   `json:"tier"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

var descriptors = map[Tier]Descriptor{
	TierLow: {
		Tier:        TierLow,
		Label:       "Low risk",
		Color:       "green",
		Description: "On track for the target retirement outcome.",
	},
	TierModerate: {
		Tier:        TierModerate,
		Label:       "Moderate risk",
		Color:       "amber",
		Description: "Some gaps to address before retirement.",
	},
	TierHigh: {
		Tier:        TierHigh,
		Label:       "High risk",
		Color:       "red",
		Description: "Significant shortfall expected without changes.",
	},
}

// Describe 返回等级的展示信息
func Describe(t Tier) Descriptor {
	if d, ok := descriptors[t]; ok {
		return d
	}
	return descriptors[TierHigh]
}
