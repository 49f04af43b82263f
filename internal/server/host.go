package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"go.uber.org/zap"
)

// scheduleFunc runs fn after d. It matches time.AfterFunc minus the timer.
type scheduleFunc func(d time.Duration, fn func())

func afterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// consoleHost serializes access to a Console shared by HTTP handlers. Network
// calls run outside the lock through the Begin/Finish forms.
type consoleHost struct {
	mu         sync.Mutex
	console    *leads.Console
	transport  leads.Transport
	dispatcher *RealtimeDispatcher
	schedule   scheduleFunc
	clock      func() time.Time
	logger     *zap.Logger

	noticeSeq        uint64
	transientPending bool
}

func newConsoleHost(console *leads.Console, dispatcher *RealtimeDispatcher, schedule scheduleFunc, clock func() time.Time, logger *zap.Logger) *consoleHost {
	host := &consoleHost{
		console:    console,
		transport:  console.Transport(),
		dispatcher: dispatcher,
		schedule:   schedule,
		clock:      clock,
		logger:     logger,
	}
	console.OnChange(host.onChange)
	return host
}

// onChange runs with mu held.
func (h *consoleHost) onChange(state leads.State) {
	if h.dispatcher != nil {
		h.dispatcher.Publish(RealtimeMessage{
			EventType: RealtimeEventState,
			State:     state,
			Timestamp: h.clock().UTC(),
		})
	}

	if state.Notice.Text != "" && state.Notice.Seq != h.noticeSeq {
		h.noticeSeq = state.Notice.Seq
		seq := state.Notice.Seq
		h.schedule(leads.NoticeTTL, func() {
			h.do(func(console *leads.Console) {
				console.DismissNotice(seq)
			})
		})
	}

	if state.Edit.Message.Transient && !h.transientPending {
		h.transientPending = true
		h.schedule(leads.TransientMessageTTL, func() {
			h.do(func(console *leads.Console) {
				h.transientPending = false
				console.ClearEditMessage()
			})
		})
	}
}

func (h *consoleHost) do(fn func(console *leads.Console)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.console)
}

func (h *consoleHost) state() leads.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.console.State()
}

// reload fetches outside the lock. A superseded response is dropped by the
// console and reported as applied=false.
func (h *consoleHost) reload(ctx context.Context) (bool, error) {
	var ticket leads.ReloadTicket
	h.do(func(console *leads.Console) {
		ticket = console.BeginReload()
	})

	records, err := h.transport.FetchLeads(ctx)

	var applied bool
	h.do(func(console *leads.Console) {
		applied = console.FinishReload(ticket, records, err)
	})
	return applied, err
}

// submit sends the open session's patch, then reloads and re-selects id on
// success. The saved confirmation is dismissed after the console's delay.
func (h *consoleHost) submit(ctx context.Context, id string) (leads.SubmitOutcome, error) {
	var (
		ticket   leads.SubmitTicket
		beginErr error
	)
	h.do(func(console *leads.Console) {
		if id == "" {
			id = console.EditSession().ID()
		}
		ticket, beginErr = console.BeginSubmit(id)
	})
	if beginErr != nil {
		return leads.SubmitOutcome{Err: beginErr}, beginErr
	}

	updated, err := h.transport.PatchLead(ctx, ticket.ID(), ticket.Patch())

	var outcome leads.SubmitOutcome
	h.do(func(console *leads.Console) {
		outcome = console.FinishSubmit(ticket, updated, err)
	})
	if err != nil {
		return outcome, err
	}

	h.schedule(outcome.CloseAfter, func() {
		h.do(func(console *leads.Console) {
			console.DismissSaved()
		})
	})

	if _, reloadErr := h.reload(ctx); reloadErr != nil && !errors.Is(reloadErr, context.Canceled) {
		h.logger.Warn("reload after save failed",
			zap.String("lead_id", ticket.ID()),
			zap.Error(reloadErr))
	}
	h.do(func(console *leads.Console) {
		console.Select(ticket.ID())
	})
	return outcome, nil
}
