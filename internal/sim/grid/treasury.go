package grid

import "pixelgrid.io/internal/protocol"

// applyWithdraw drains the accumulated claim fees to an external sink.
// Admin-only. The balance is zeroed only after the transfer succeeds, so a
// failed transfer leaves the treasury exactly as it was.
func (g *Grid) applyWithdraw(p *Painter, inst protocol.InstantReq, nowTick uint64) {
	if p.ID != g.cfg.AdminID {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrNotAdmin, "caller is not the registry admin"))
		return
	}
	if g.balance == 0 {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrNoFunds, "treasury is empty"))
		return
	}
	if g.transferrer == nil {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrTransferFailed, "no transferrer configured"))
		return
	}

	amount := g.balance
	if err := g.transferrer.Transfer(inst.Dest, amount); err != nil {
		g.sendResult(p.ID, actionResult(nowTick, inst.ID, false, protocol.ErrTransferFailed, err.Error()))
		return
	}
	g.balance = 0

	g.audit(AuditEntry{Tick: nowTick, Actor: p.ID, Action: "WITHDRAW", Amount: amount})
	g.emitEvent(eventTreasuryWithdrawn(nowTick, p.ID, inst.Dest, amount))
	g.sendResult(p.ID, actionResult(nowTick, inst.ID, true, "", ""))
}

// Balance reports the accumulated treasury, snapshot-consistent via the
// loop-owned query channel.
func (g *Grid) Balance() uint64 {
	resp := make(chan uint64, 1)
	g.queries <- func() { resp <- g.balance }
	return <-resp
}
