package domain

// EmotionResonance is the {intensity, valence, reason} bundle computed
// by the emotion calculator from LLM-assessed importance and alignment.
// intensity = importance * abs(alignment), rounded to three decimals.
type EmotionResonance struct {
	Intensity  float64 `json:"intensity"`
	Valence    string  `json:"valence"`
	Reason     string  `json:"reason"`
	Importance float64 `json:"importance"`
	Alignment  float64 `json:"alignment"`
}

// Valence labels.
const (
	ValencePositive = "positive"
	ValenceNegative = "negative"
	ValenceMixed    = "mixed"
)

// AnchorThreshold is the fixed constant above which intensity triggers a
// temporal anchor. A compile-time policy decision, not a tuning knob.
const AnchorThreshold = 0.7
