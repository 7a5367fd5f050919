package turn

import (
	"strings"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

// NPCFlavor is one line of the enrichment pass output: narrative color
// for an NPC that appeared this turn.
type NPCFlavor struct {
	ID      string
	Status  string
	Summary string
}

// ParseFlavorLines parses enrichment output of the form
//
//	id: truong_lao_mac | status: đang luyện đan | summary: hứa giúp ngươi
//
// one NPC per line. Malformed lines are skipped; the pass is cosmetic
// and must never fail a turn.
func ParseFlavorLines(raw string) []NPCFlavor {
	var out []NPCFlavor
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var flavor NPCFlavor
		for _, part := range strings.Split(line, "|") {
			key, value, ok := strings.Cut(part, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "id":
				flavor.ID = value
			case "status":
				flavor.Status = value
			case "summary":
				flavor.Summary = value
			}
		}
		if flavor.ID == "" || (flavor.Status == "" && flavor.Summary == "") {
			continue
		}
		out = append(out, flavor)
	}
	return out
}

// MergeFlavor folds enrichment lines into a turn's NPC updates. A
// flavor for an NPC already being updated is merged into that update;
// otherwise a new UPDATE is appended so the reconciler applies it.
func MergeFlavor(updates []state.NPCUpdate, flavors []NPCFlavor) []state.NPCUpdate {
	out := make([]state.NPCUpdate, len(updates))
	copy(out, updates)
	for _, flavor := range flavors {
		merged := false
		for i := range out {
			if out[i].ID != flavor.ID || out[i].Action == state.NPCDelete {
				continue
			}
			if out[i].Payload == nil {
				out[i].Payload = &state.NPCPayload{}
			}
			if flavor.Status != "" && out[i].Payload.Status == "" {
				out[i].Payload.Status = flavor.Status
			}
			if flavor.Summary != "" && out[i].Payload.LastInteractionSummary == "" {
				out[i].Payload.LastInteractionSummary = flavor.Summary
			}
			merged = true
			break
		}
		if !merged {
			out = append(out, state.NPCUpdate{
				ID:     flavor.ID,
				Action: state.NPCModify,
				Payload: &state.NPCPayload{
					Status:                 flavor.Status,
					LastInteractionSummary: flavor.Summary,
				},
			})
		}
	}
	return out
}
