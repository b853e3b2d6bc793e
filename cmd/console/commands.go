package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/queue"
)

type localAction string

const (
	actionNone  localAction = ""
	actionHelp  localAction = "help"
	actionPause localAction = "pause"
	actionStep  localAction = "step"
	actionCopy  localAction = "copy"
	actionTime  localAction = "time"
	actionQuit  localAction = "quit"
)

const helpText = `Commands:
• /send <npc> <scene> [x y] - Start a journey
• /travel <npc> - Force the next decision to travel
• /remove <npc> - Take an NPC out of the world
• /load <scene>, /unload <scene> - Change loaded scenes
• /pickup <prop>, /drop <prop> - Toggle a prop obstacle
• /time HH:MM - Set the clock
• /pause, /step - Freeze time, advance one tick
• /copy - Copy the world snapshot as JSON
• /quit or Ctrl+C - Quit`

// consoleCommand is one parsed input line: either a UI action or a world
// command for the processor.
type consoleCommand struct {
	action localAction
	minute int
	cmd    *queue.Command
}

func parseCommand(worldID uuid.UUID, input string) (consoleCommand, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return consoleCommand{}, fmt.Errorf("commands start with /, try /help")
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	want := func(n int, usage string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}
	newCmd := func(t queue.CommandType) *queue.Command {
		return queue.NewCommand(worldID, t)
	}

	switch name {
	case "/help", "/?":
		return consoleCommand{action: actionHelp}, nil
	case "/pause":
		return consoleCommand{action: actionPause}, nil
	case "/step":
		return consoleCommand{action: actionStep}, nil
	case "/copy":
		return consoleCommand{action: actionCopy}, nil
	case "/quit", "/exit":
		return consoleCommand{action: actionQuit}, nil

	case "/time":
		if err := want(1, "/time HH:MM"); err != nil {
			return consoleCommand{}, err
		}
		m, err := clock.Parse(args[0])
		if err != nil {
			return consoleCommand{}, err
		}
		return consoleCommand{action: actionTime, minute: m}, nil

	case "/send":
		if len(args) != 2 && len(args) != 4 {
			return consoleCommand{}, fmt.Errorf("usage: /send <npc> <scene> [x y]")
		}
		c := newCmd(queue.CommandSendNPC)
		c.NPCID, c.TargetScene = args[0], args[1]
		if len(args) == 4 {
			x, errX := strconv.ParseFloat(args[2], 64)
			y, errY := strconv.ParseFloat(args[3], 64)
			if errX != nil || errY != nil {
				return consoleCommand{}, fmt.Errorf("invalid position %s %s", args[2], args[3])
			}
			c.X, c.Y = &x, &y
		}
		return consoleCommand{cmd: c}, nil

	case "/travel", "/remove":
		if err := want(1, name+" <npc>"); err != nil {
			return consoleCommand{}, err
		}
		c := newCmd(queue.CommandForceTravel)
		if name == "/remove" {
			c = newCmd(queue.CommandRemoveNPC)
		}
		c.NPCID = args[0]
		return consoleCommand{cmd: c}, nil

	case "/load", "/unload":
		if err := want(1, name+" <scene>"); err != nil {
			return consoleCommand{}, err
		}
		c := newCmd(queue.CommandLoadScene)
		if name == "/unload" {
			c = newCmd(queue.CommandUnloadScene)
		}
		c.Scene = args[0]
		return consoleCommand{cmd: c}, nil

	case "/pickup", "/drop":
		if err := want(1, name+" <prop>"); err != nil {
			return consoleCommand{}, err
		}
		c := newCmd(queue.CommandPickUpProp)
		if name == "/drop" {
			c = newCmd(queue.CommandDropProp)
		}
		c.PropID = args[0]
		return consoleCommand{cmd: c}, nil
	}
	return consoleCommand{}, fmt.Errorf("unknown command %s, try /help", name)
}
