// Package app is the composition root of the bridge.
//
// # Overview
//
// Build loads the process configuration and wires the components together;
// Run starts the agent. Everything else in the module is assembled here and
// nowhere else.
//
//	┌──────────────┐
//	│   Build()    │
//	└──────┬───────┘
//	       ├─────> config.Load()        YAML + BRIDGE_* env + .env
//	       ├─────> logging.Init()       console + JSON log file
//	       ├─────> events.NewBus()      log hook feeds LogEntry events
//	       ├─────> schedule.Supervisor  (agent) or schedule.Manual (commands)
//	       ├─────> journal.Open()       optional SQLite delivery journal
//	       └─────> bridge.New()         store file, gateway, pipeline
//
//	┌──────────────┐
//	│    Run()     │
//	└──────┬───────┘
//	       ├─────> statusapi.Listen()   local endpoint on status.addr
//	       ├─────> agent.json           pid + bound address beside the store
//	       ├─────> supervisor           timers + local endpoint
//	       ├─────> bridge.Start()       update checks, license, polling
//	       └─────> ui.Run() or wait     until quit or signal
//
// # Modes
//
// ModeAgent drives real timers. ModeCommand serves one-shot CLI commands
// such as login or devices sync: the bridge behaves the same, but timers it
// starts never fire and the process exits when the command returns.
//
// # One agent per store
//
// The agent owns the store file. Build refuses agent mode while the agent
// file names an address that answers. One-shot commands call FindAgent and,
// when it succeeds, drive the agent through statusapi.Client rather than
// building a second bridge over the same store.
//
// # Shutdown
//
// On return Run stops every timer, cancels the supervisor, waits for it and
// removes the agent file.
// Close then releases the journal and the log file.
package app
