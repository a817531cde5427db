package species

const (
	// VolumePerLog is the network volume of one full-size log (radius 8).
	VolumePerLog   = 4096
	VolumePerStick = 512
)

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// LogDrops converts harvested network volume into items: whole logs first,
// the remainder as sticks.
func (s *Species) LogDrops(volume int) []ItemStack {
	if volume <= 0 || s.family == nil {
		return nil
	}
	var out []ItemStack
	if logs := volume / VolumePerLog; logs > 0 {
		out = append(out, ItemStack{Item: s.family.PrimitiveLog, Count: logs})
	}
	if sticks := (volume % VolumePerLog) / VolumePerStick; sticks > 0 {
		out = append(out, ItemStack{Item: s.family.Stick, Count: sticks})
	}
	return out
}
