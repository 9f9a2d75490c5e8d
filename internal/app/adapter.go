package app

import (
	"os/exec"

	"github.com/dshills/infopanel/internal/config"
	"github.com/dshills/infopanel/internal/dap"
	"github.com/dshills/infopanel/internal/debug"
)

// clientName identifies the host in the initialize request.
const clientName = "infopanel"

// startAdapter connects to the configured adapter off the loop and starts
// a debug session once connected.
func (a *Application) startAdapter() {
	if a.opts.Client != nil {
		a.startSession(a.opts.Client)
		return
	}
	if !a.cfg.HasAdapter() {
		a.logger.Info("no adapter configured")
		a.setMessage("no adapter configured")
		return
	}

	ac := a.cfg.Adapter
	a.setMessage("connecting to " + ac.ID)
	a.loop.Async(func() func() {
		client, err := connect(ac)
		return func() {
			if err != nil {
				a.logger.Error("connect %s: %v", ac.ID, err)
				a.setMessage("adapter: " + err.Error())
				return
			}
			if a.stopping {
				_ = client.Close()
				return
			}
			a.setMessage("")
			a.startSession(client)
		}
	})
}

// connect dials the adapter address, or spawns the adapter command and
// talks to it over stdio.
func connect(ac config.AdapterConfig) (*dap.Client, error) {
	if ac.Address != "" {
		t, err := dap.NewSocketTransport(ac.Address)
		if err != nil {
			return nil, err
		}
		return dap.NewClient(t), nil
	}

	t, err := dap.NewStdioTransport(exec.Command(ac.Command, ac.Args...))
	if err != nil {
		return nil, err
	}
	return dap.NewClient(t), nil
}

func (a *Application) startSession(client *dap.Client) {
	_, err := a.debug.Start(a.cfg.Adapter.ID, client, debug.StartOptions{
		AdapterID:      a.cfg.Adapter.ID,
		ClientName:     clientName,
		Request:        a.cfg.Adapter.Request,
		Arguments:      a.cfg.Adapter.Arguments,
		Breakpoints:    breakpoints(a.cfg.Breakpoints),
		RequestTimeout: a.cfg.RequestTimeout(),
	})
	if err != nil {
		_ = client.Close()
		a.logger.Error("start session: %v", err)
		a.setMessage("adapter: " + err.Error())
	}
}

func breakpoints(in []config.BreakpointConfig) []debug.Breakpoint {
	if len(in) == 0 {
		return nil
	}
	out := make([]debug.Breakpoint, len(in))
	for i, bp := range in {
		out[i] = debug.Breakpoint{Path: bp.Path, Line: bp.Line, Condition: bp.Condition}
	}
	return out
}
