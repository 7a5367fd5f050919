package state

// CharacterCoreStats is the combat/resource numeric block. The field set
// and JSON names are fixed: five current/max resource pairs plus seven
// combat stats. Percentage stats (chiMang, satThuongChiMang,
// giamHoiChieu) are fractional floats (0.05 = 5%) for save compatibility.
type CharacterCoreStats struct {
	SinhLuc      float64 `json:"sinhLuc"`      // health
	SinhLucToiDa float64 `json:"sinhLucToiDa"` // max health
	LinhLuc      float64 `json:"linhLuc"`      // mana
	LinhLucToiDa float64 `json:"linhLucToiDa"` // max mana
	TheLuc       float64 `json:"theLuc"`       // stamina
	TheLucToiDa  float64 `json:"theLucToiDa"`  // max stamina
	DoNo         float64 `json:"doNo"`         // satiety
	DoNoToiDa    float64 `json:"doNoToiDa"`    // max satiety
	DoNuoc       float64 `json:"doNuoc"`       // hydration
	DoNuocToiDa  float64 `json:"doNuocToiDa"`  // max hydration

	CongKich         float64 `json:"congKich"`         // attack
	PhongNgu         float64 `json:"phongNgu"`         // defense
	KhangPhep        float64 `json:"khangPhep"`        // magic resist
	ThanPhap         float64 `json:"thanPhap"`         // speed
	ChiMang          float64 `json:"chiMang"`          // crit chance, fractional
	SatThuongChiMang float64 `json:"satThuongChiMang"` // crit damage, fractional
	GiamHoiChieu     float64 `json:"giamHoiChieu"`     // cooldown reduction, fractional
}

// AttributeDefinition is one entry of a user-authored attribute template.
// IDs matching core stat field names seed the starting block.
type AttributeDefinition struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	BaseValue float64 `json:"baseValue" yaml:"baseValue"`
}

// resourcePairs lists the current/max resource fields in clamp order.
var resourcePairs = []struct{ current, max string }{
	{"sinhLuc", "sinhLucToiDa"},
	{"linhLuc", "linhLucToiDa"},
	{"theLuc", "theLucToiDa"},
	{"doNo", "doNoToiDa"},
	{"doNuoc", "doNuocToiDa"},
}

// Field returns a pointer to the stat named by its JSON id, or nil for
// an unknown id.
func (cs *CharacterCoreStats) Field(id string) *float64 {
	switch id {
	case "sinhLuc":
		return &cs.SinhLuc
	case "sinhLucToiDa":
		return &cs.SinhLucToiDa
	case "linhLuc":
		return &cs.LinhLuc
	case "linhLucToiDa":
		return &cs.LinhLucToiDa
	case "theLuc":
		return &cs.TheLuc
	case "theLucToiDa":
		return &cs.TheLucToiDa
	case "doNo":
		return &cs.DoNo
	case "doNoToiDa":
		return &cs.DoNoToiDa
	case "doNuoc":
		return &cs.DoNuoc
	case "doNuocToiDa":
		return &cs.DoNuocToiDa
	case "congKich":
		return &cs.CongKich
	case "phongNgu":
		return &cs.PhongNgu
	case "khangPhep":
		return &cs.KhangPhep
	case "thanPhap":
		return &cs.ThanPhap
	case "chiMang":
		return &cs.ChiMang
	case "satThuongChiMang":
		return &cs.SatThuongChiMang
	case "giamHoiChieu":
		return &cs.GiamHoiChieu
	}
	return nil
}

// ComputeInitialCoreStats derives the starting core stat block from an
// attribute template. Fields without a matching definition stay zero.
// Each current resource is then set to its max, so a template that
// defines only the max still yields a full resource.
func ComputeInitialCoreStats(defs []AttributeDefinition) CharacterCoreStats {
	var cs CharacterCoreStats
	for _, def := range defs {
		if f := cs.Field(def.ID); f != nil {
			*f = def.BaseValue
		}
	}
	for _, pair := range resourcePairs {
		*cs.Field(pair.current) = *cs.Field(pair.max)
	}
	return cs
}

// ApplyDeltas adds the given per-field deltas, then clamps every current
// resource to its (possibly just-changed) max, in fixed pair order.
// Unknown field ids are skipped.
func (cs *CharacterCoreStats) ApplyDeltas(deltas map[string]float64) {
	for id, d := range deltas {
		if f := cs.Field(id); f != nil {
			*f += d
		}
	}
	cs.ClampResources()
}

// ClampResources caps each current resource at its max and floors it at 0.
func (cs *CharacterCoreStats) ClampResources() {
	for _, pair := range resourcePairs {
		cur := cs.Field(pair.current)
		max := cs.Field(pair.max)
		if *cur > *max {
			*cur = *max
		}
		if *cur < 0 {
			*cur = 0
		}
	}
}
