package module

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/katapult/framework/routing"
	"github.com/km-arc/katapult/framework/server"
)

// Phase names one of the three configuration passes.
type Phase int

const (
	PhaseApp Phase = iota
	PhaseServer
	PhaseRouting
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseApp:
		return "app"
	case PhaseServer:
		return "server"
	case PhaseRouting:
		return "routing"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Registration records what Register did.
type Registration struct {
	modules []any
	calls   [3]int
}

// Modules returns the instances that exposed at least one hook, in
// resolution order.
func (r *Registration) Modules() []any { return r.modules }

// Calls returns how many hooks ran in phase p.
func (r *Registration) Calls(p Phase) int { return r.calls[p] }

// Register calls every hook exactly once: first ConfigureApp on each
// instance, then ConfigureServer on each, then ConfigureRouting on each.
// Within a phase instances are visited in the order given, which is the
// order they were resolved in.
func Register(instances []any, app *App, srv *server.Server, router *routing.Router) *Registration {
	reg := &Registration{}
	for _, inst := range instances {
		if IsModule(inst) {
			reg.modules = append(reg.modules, inst)
		}
	}
	logger := app.Logger().Named("modules")

	for _, inst := range reg.modules {
		if m, ok := inst.(AppConfigurer); ok {
			m.ConfigureApp(app)
			reg.calls[PhaseApp]++
			logger.Debug("configured", zap.Stringer("phase", PhaseApp), zap.String("module", fmt.Sprintf("%T", inst)))
		}
	}
	for _, inst := range reg.modules {
		if m, ok := inst.(ServerConfigurer); ok {
			m.ConfigureServer(srv)
			reg.calls[PhaseServer]++
			logger.Debug("configured", zap.Stringer("phase", PhaseServer), zap.String("module", fmt.Sprintf("%T", inst)))
		}
	}
	for _, inst := range reg.modules {
		if m, ok := inst.(RoutingConfigurer); ok {
			m.ConfigureRouting(router)
			reg.calls[PhaseRouting]++
			logger.Debug("configured", zap.Stringer("phase", PhaseRouting), zap.String("module", fmt.Sprintf("%T", inst)))
		}
	}
	return reg
}
