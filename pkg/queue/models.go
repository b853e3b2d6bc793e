package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommandType identifies what a queued command does to a running world
type CommandType string

const (
	// CommandForceTravel makes an NPC's next behavior decision pick travel
	CommandForceTravel CommandType = "force_travel"
	// CommandSendNPC starts a journey to TargetScene, optionally ending at X,Y
	CommandSendNPC CommandType = "send_npc"
	// CommandRemoveNPC takes an NPC out of the world
	CommandRemoveNPC CommandType = "remove_npc"

	// CommandLoadScene makes Scene resident and active
	CommandLoadScene CommandType = "load_scene"
	// CommandUnloadScene stops rendering Scene; its NPCs keep simulating
	CommandUnloadScene CommandType = "unload_scene"

	// CommandPickUpProp and CommandDropProp toggle whether a prop blocks movement
	CommandPickUpProp CommandType = "pick_up_prop"
	CommandDropProp   CommandType = "drop_prop"
)

// Command represents one request from the API to the worker that owns a world
type Command struct {
	CommandID string      `json:"command_id"`
	Type      CommandType `json:"type"`
	WorldID   uuid.UUID   `json:"world_id"`

	// NPC-specific fields
	NPCID       string   `json:"npc_id,omitempty"`
	TargetScene string   `json:"target_scene,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`

	// Scene-specific fields
	Scene string `json:"scene,omitempty"`

	// Prop-specific fields
	PropID string `json:"prop_id,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewCommand stamps a command with an id and enqueue time
func NewCommand(worldID uuid.UUID, t CommandType) *Command {
	return &Command{
		CommandID:  uuid.New().String(),
		Type:       t,
		WorldID:    worldID,
		EnqueuedAt: time.Now(),
	}
}

// Validate checks that the fields the command type needs are present
func (c *Command) Validate() error {
	if c.WorldID == uuid.Nil {
		return fmt.Errorf("world_id is required")
	}
	switch c.Type {
	case CommandForceTravel, CommandRemoveNPC:
		if c.NPCID == "" {
			return fmt.Errorf("%s requires npc_id", c.Type)
		}
	case CommandSendNPC:
		if c.NPCID == "" || c.TargetScene == "" {
			return fmt.Errorf("%s requires npc_id and target_scene", c.Type)
		}
		if (c.X == nil) != (c.Y == nil) {
			return fmt.Errorf("%s: x and y must be given together", c.Type)
		}
	case CommandLoadScene, CommandUnloadScene:
		if c.Scene == "" {
			return fmt.Errorf("%s requires scene", c.Type)
		}
	case CommandPickUpProp, CommandDropProp:
		if c.PropID == "" {
			return fmt.Errorf("%s requires prop_id", c.Type)
		}
	default:
		return fmt.Errorf("unknown command type %q", c.Type)
	}
	return nil
}

// ToJSON converts the command to JSON bytes for Redis
func (c *Command) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// FromJSON parses a command from JSON bytes
func FromJSON(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}
