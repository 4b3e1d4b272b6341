package grid

import "pixelgrid.io/internal/protocol"

// StepMax is the highest quantization step for SET_COLOR_STEPS.
const StepMax = 15

// QuantizeStep maps a 0..15 step to an 8-bit channel value. Step 15 maps to
// 255 rather than 15*17, keeping the top step inside the channel range.
// Callers must validate the step first.
func QuantizeStep(s int) uint8 {
	if s == StepMax {
		return 255
	}
	return uint8(s * 17)
}

// ValidStep reports whether s is a usable quantization step.
func ValidStep(s int) bool {
	return s >= 0 && s <= StepMax
}

// setColor performs the shared ownership-gated color write. It returns a
// protocol error code, or "" on success.
func (g *Grid) setColor(actor string, id int, c RGB, nowTick uint64) string {
	if !validID(id) {
		return protocol.ErrInvalidID
	}
	cell := g.cellAt(id)
	if !cell.Claimed {
		return protocol.ErrNotFound
	}
	if cell.Owner != actor {
		return protocol.ErrNotOwner
	}
	cell.Color = c

	g.audit(AuditEntry{Tick: nowTick, Actor: actor, Action: "SET_COLOR", Cell: id, R: c.R, G: c.G, B: c.B})
	g.emitEvent(eventColorUpdated(nowTick, actor, id, c))
	return ""
}
