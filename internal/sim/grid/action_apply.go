package grid

import "pixelgrid.io/internal/protocol"

type instantHandler func(g *Grid, p *Painter, inst protocol.InstantReq, nowTick uint64)

var instantDispatch = map[string]instantHandler{
	protocol.InstantClaim:         (*Grid).applyClaim,
	protocol.InstantSetColor:      (*Grid).applySetColor,
	protocol.InstantSetColorSteps: (*Grid).applySetColorSteps,
	protocol.InstantWithdraw:      (*Grid).applyWithdraw,
}

func (g *Grid) applyAct(p *Painter, act protocol.ActMsg, nowTick uint64) {
	for _, inst := range act.Instants {
		if h := instantDispatch[inst.Type]; h != nil {
			h(g, p, inst, nowTick)
			continue
		}
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrBadRequest, "unknown instant type"))
	}
}

// applyClaim allocates an unclaimed cell to the acting painter. A cell can
// be claimed exactly once; racing claims are serialized by the loop, so the
// first envelope wins and every later one fails E_ALREADY_CLAIMED.
func (g *Grid) applyClaim(p *Painter, inst protocol.InstantReq, nowTick uint64) {
	id := inst.Cell
	if !validID(id) {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrInvalidID, "cell id out of range"))
		return
	}
	if g.cfg.FeeRequired && inst.Payment < g.cfg.MinClaimFee {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrInsufficientPayment, "claim fee below minimum"))
		return
	}
	cell := g.cellAt(id)
	if cell.Claimed {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrAlreadyClaimed, "cell already claimed"))
		return
	}

	cell.Claimed = true
	cell.Owner = p.ID
	cell.Color = White
	g.totalClaimed.Add(1)
	if inst.Payment > 0 {
		g.balance += uint64(inst.Payment)
	}

	x, y, _ := ToCoords(id)
	g.audit(AuditEntry{Tick: nowTick, Actor: p.ID, Action: "CLAIM", Cell: id, Amount: uint64(inst.Payment)})
	g.emitEvent(eventCellClaimed(nowTick, p.ID, id, x, y))
	g.sendResult(p.ID, actionResult(nowTick, inst.ID, true, "", ""))
}

func (g *Grid) applySetColor(p *Painter, inst protocol.InstantReq, nowTick uint64) {
	if inst.R < 0 || inst.R > 255 || inst.G < 0 || inst.G > 255 || inst.B < 0 || inst.B > 255 {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrBadRequest, "channel value out of range"))
		return
	}
	c := RGB{R: uint8(inst.R), G: uint8(inst.G), B: uint8(inst.B)}
	if code := g.setColor(p.ID, inst.Cell, c, nowTick); code != "" {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, code, ""))
		return
	}
	g.sendResult(p.ID, actionResult(nowTick, inst.ID, true, "", ""))
}

func (g *Grid) applySetColorSteps(p *Painter, inst protocol.InstantReq, nowTick uint64) {
	for _, s := range inst.Steps {
		if !ValidStep(s) {
			g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrInvalidStep, "step out of range"))
			return
		}
	}
	c := RGB{
		R: QuantizeStep(inst.Steps[0]),
		G: QuantizeStep(inst.Steps[1]),
		B: QuantizeStep(inst.Steps[2]),
	}
	if code := g.setColor(p.ID, inst.Cell, c, nowTick); code != "" {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, code, ""))
		return
	}
	g.sendResult(p.ID, actionResult(nowTick, inst.ID, true, "", ""))
}

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	e := protocol.Event{
		"t":    tick,
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}
