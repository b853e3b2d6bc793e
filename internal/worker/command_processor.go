package worker

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/npc-engine/internal/logger"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/queue"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

// CommandProcessor applies queued commands to a world between ticks.
// It's used by the worker and by the console, which runs a world in process.
type CommandProcessor struct {
	world  *world.Registry
	logger *slog.Logger
}

// NewCommandProcessor creates a new command processor
func NewCommandProcessor(w *world.Registry, logger *slog.Logger) *CommandProcessor {
	return &CommandProcessor{world: w, logger: logger}
}

// Apply carries out one command. Errors describe why the command could not
// be applied; the world is left unchanged in that case.
func (p *CommandProcessor) Apply(cmd *queue.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if cmd.WorldID != p.world.ID() {
		return fmt.Errorf("command for world %s sent to world %s", cmd.WorldID, p.world.ID())
	}

	switch cmd.Type {
	case queue.CommandForceTravel:
		a, ok := p.world.Agent(cmd.NPCID)
		if !ok {
			return fmt.Errorf("npc %s not found", cmd.NPCID)
		}
		a.ForceTravel()

	case queue.CommandSendNPC:
		a, ok := p.world.Agent(cmd.NPCID)
		if !ok {
			return fmt.Errorf("npc %s not found", cmd.NPCID)
		}
		var target *geom.Point
		if cmd.X != nil && cmd.Y != nil {
			t := geom.Pt(*cmd.X, *cmd.Y)
			target = &t
		}
		if !a.PathfindToScene(cmd.TargetScene, target) {
			return fmt.Errorf("no route from %s to %s", a.Scene(), cmd.TargetScene)
		}

	case queue.CommandRemoveNPC:
		if _, ok := p.world.Agent(cmd.NPCID); !ok {
			return fmt.Errorf("npc %s not found", cmd.NPCID)
		}
		p.world.Remove(cmd.NPCID)

	case queue.CommandLoadScene:
		if err := p.world.LoadScene(cmd.Scene); err != nil {
			return fmt.Errorf("failed to load scene: %w", err)
		}

	case queue.CommandUnloadScene:
		p.world.UnloadScene(cmd.Scene)

	case queue.CommandPickUpProp, queue.CommandDropProp:
		if err := p.world.SetPropPickedUp(cmd.PropID, cmd.Type == queue.CommandPickUpProp); err != nil {
			return err
		}
	}

	l := logger.WithWorld(p.logger, cmd.WorldID.String())
	if cmd.NPCID != "" {
		l = logger.WithAgent(l, cmd.NPCID)
	}
	l.Info("Command applied", "command_id", cmd.CommandID, "type", cmd.Type)
	return nil
}
