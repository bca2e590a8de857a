package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kfodor/coinledger/internal/game"
	"github.com/kfodor/coinledger/internal/services/commands"
	"github.com/kfodor/coinledger/internal/services/drops"
	"github.com/kfodor/coinledger/internal/services/rewards"
	"github.com/kfodor/coinledger/internal/webclient"
)

// console turns stdin lines into game events so the whole pipeline can
// be driven without a real game server attached. Every line is handled
// on the frame queue, matching how the engine delivers events.
type console struct {
	roster *game.Roster
	hooks  *game.Hooks
	frames *game.FrameQueue
	cmds   *commands.Handler
	crates *drops.Manager
	chat   game.Chat
	web    *webclient.Client
	stats  *rewards.Stats
}

var consolePlayer = game.Player{SteamID: 0, Name: "console"}

func newConsole(roster *game.Roster, hooks *game.Hooks, frames *game.FrameQueue, cmds *commands.Handler, crates *drops.Manager, chat game.Chat, web *webclient.Client, stats *rewards.Stats) *console {
	return &console{roster: roster, hooks: hooks, frames: frames, cmds: cmds, crates: crates, chat: chat, web: web, stats: stats}
}

func (c *console) runLoop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if ctx.Err() != nil {
			return
		}

		c.frames.NextFrame(func() {
			c.handle(line)
		})
	}
}

func (c *console) handle(line string) {
	fields := strings.Fields(line)
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "connect":
		c.connect(args)
	case "disconnect":
		c.disconnect(args)
	case "kill":
		c.kill(args)
	case "round":
		c.round(args)
	case "mvp":
		c.single(args, c.hooks.EmitMvp)
	case "plant":
		c.single(args, c.hooks.EmitBombPlanted)
	case "defuse":
		c.single(args, c.hooks.EmitBombDefused)
	case "use":
		c.use(args)
	case "signin":
		c.signin(args)
	case "grantcase":
		c.grantcase(args)
	case "stats":
		c.printStats(args)
	default:
		if !c.cmds.Dispatch(consolePlayer, line) {
			fmt.Println("unknown command; try coinhelp, connect, kill, round, mvp, plant, defuse, use, signin, grantcase, stats")
		}
	}
}

// connect <steamid> <name> [t|ct]
func (c *console) connect(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: connect <steamid> <name> [t|ct]")
		return
	}

	steamID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("bad steamid")
		return
	}

	team := game.TeamNone
	if len(args) > 2 {
		team = parseTeam(args[2])
	}

	p := game.Player{SteamID: steamID, Name: args[1], Team: team}
	c.roster.Connect(p)
	c.hooks.EmitPlayerConnect(p)
}

// disconnect <steamid>
func (c *console) disconnect(args []string) {
	steamID, ok := c.parseSteamID(args)
	if !ok {
		return
	}

	c.hooks.EmitPlayerDisconnect(steamID)
	c.roster.Disconnect(steamID)
}

// kill <attacker> <victim> [hs] [weapon]
func (c *console) kill(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: kill <attacker> <victim> [hs] [weapon]")
		return
	}

	attacker, err1 := strconv.ParseUint(args[0], 10, 64)
	victim, err2 := strconv.ParseUint(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		fmt.Println("bad steamid")
		return
	}

	ev := game.KillEvent{Attacker: attacker, Victim: victim, Weapon: "ak47"}

	for _, extra := range args[2:] {
		switch {
		case strings.EqualFold(extra, "hs"):
			ev.Headshot = true
		case strings.HasPrefix(extra, "st:"):
			if uid, err := strconv.Atoi(extra[3:]); err == nil {
				ev.WeaponItemID = uid
			}
		default:
			ev.Weapon = extra
		}
	}

	c.hooks.EmitKill(ev)
}

// round <t|ct>
func (c *console) round(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: round <t|ct>")
		return
	}

	c.hooks.EmitRoundEnd(parseTeam(args[0]))
}

func (c *console) single(args []string, emit func(uint64)) {
	steamID, ok := c.parseSteamID(args)
	if ok {
		emit(steamID)
	}
}

// use <steamid> picks up the nearest active crate.
func (c *console) use(args []string) {
	steamID, ok := c.parseSteamID(args)
	if !ok {
		return
	}

	p, connected := c.roster.BySteamID(steamID)
	if !connected {
		fmt.Println("player not connected")
		return
	}

	crate, found := c.crates.Nearest(game.Vec3{})
	if !found {
		fmt.Println("no crate in range")
		return
	}

	if !c.crates.Collect(p, crate.Handle) {
		fmt.Println("crate already gone")
	}
}

// signin <steamid> fetches a one-time site login token and chats the
// callback link to the player.
func (c *console) signin(args []string) {
	steamID, ok := c.parseSteamID(args)
	if !ok {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		token := c.web.SignIn(ctx, steamID)

		c.frames.NextFrame(func() {
			if token == "" {
				c.chat.ToPlayer(steamID, "[Inventory] Sign-in is not available right now.")
				return
			}

			c.chat.ToPlayer(steamID, "[Inventory] Login here: "+c.web.SignInCallbackURL(token))
		})
	}()
}

// grantcase <steamid> <caseType> asks the site to grant a case drop.
func (c *console) grantcase(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: grantcase <steamid> <caseType>")
		return
	}

	steamID, ok := c.parseSteamID(args)
	if !ok {
		return
	}

	caseType := args[1]

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		granted := c.web.CaseDropReward(ctx, steamID, caseType)

		c.frames.NextFrame(func() {
			if granted {
				c.chat.ToPlayer(steamID, "[Drop] A "+caseType+" case was added to your site inventory!")
			}
		})
	}()
}

// stats <steamid> prints the per-player event counters.
func (c *console) printStats(args []string) {
	steamID, ok := c.parseSteamID(args)
	if !ok {
		return
	}

	ps := c.stats.For(steamID)
	fmt.Printf("kills=%d headshots=%d knife=%d assists=%d plants=%d defuses=%d\n",
		ps.Kills, ps.Headshots, ps.KnifeKills, ps.Assists, ps.BombPlants, ps.BombDefuses)
}

func (c *console) parseSteamID(args []string) (uint64, bool) {
	if len(args) < 1 {
		fmt.Println("steamid required")
		return 0, false
	}

	steamID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("bad steamid")
		return 0, false
	}

	return steamID, true
}

func parseTeam(s string) game.Team {
	switch strings.ToLower(s) {
	case "t":
		return game.TeamTerrorist
	case "ct":
		return game.TeamCounterTerrorist
	default:
		slog.Debug("unknown team, defaulting to none", "team", s)
		return game.TeamNone
	}
}
