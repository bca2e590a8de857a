package game

// Vec3 is a world position.
type Vec3 struct {
	X, Y, Z float64
}

// KillEvent describes one kill credit. Assister is zero when absent.
// WeaponItemID carries the site UID of the killing weapon's StatTrak
// item, zero for non-StatTrak weapons.
type KillEvent struct {
	Attacker     uint64
	Victim       uint64
	Assister     uint64
	Headshot     bool
	Weapon       string
	WeaponItemID int
	VictimPos    Vec3
}

// Hooks is the event dispatcher the host drives. Handlers are registered
// once at wiring time and run on the game-loop goroutine, mirroring the
// runtime's event-handler registration.
type Hooks struct {
	onKill       []func(KillEvent)
	onRoundEnd   []func(winner Team)
	onMvp        []func(steamID uint64)
	onBombPlant  []func(steamID uint64)
	onBombDefuse []func(steamID uint64)
	onConnect    []func(p Player)
	onDisconnect []func(steamID uint64)
}

func NewHooks() *Hooks { return &Hooks{} }

func (h *Hooks) OnKill(fn func(KillEvent))          { h.onKill = append(h.onKill, fn) }
func (h *Hooks) OnRoundEnd(fn func(Team))           { h.onRoundEnd = append(h.onRoundEnd, fn) }
func (h *Hooks) OnMvp(fn func(uint64))              { h.onMvp = append(h.onMvp, fn) }
func (h *Hooks) OnBombPlanted(fn func(uint64))      { h.onBombPlant = append(h.onBombPlant, fn) }
func (h *Hooks) OnBombDefused(fn func(uint64))      { h.onBombDefuse = append(h.onBombDefuse, fn) }
func (h *Hooks) OnPlayerConnect(fn func(Player))    { h.onConnect = append(h.onConnect, fn) }
func (h *Hooks) OnPlayerDisconnect(fn func(uint64)) { h.onDisconnect = append(h.onDisconnect, fn) }

func (h *Hooks) EmitKill(ev KillEvent) {
	for _, fn := range h.onKill {
		fn(ev)
	}
}

func (h *Hooks) EmitRoundEnd(winner Team) {
	for _, fn := range h.onRoundEnd {
		fn(winner)
	}
}

func (h *Hooks) EmitMvp(steamID uint64) {
	for _, fn := range h.onMvp {
		fn(steamID)
	}
}

func (h *Hooks) EmitBombPlanted(steamID uint64) {
	for _, fn := range h.onBombPlant {
		fn(steamID)
	}
}

func (h *Hooks) EmitBombDefused(steamID uint64) {
	for _, fn := range h.onBombDefuse {
		fn(steamID)
	}
}

func (h *Hooks) EmitPlayerConnect(p Player) {
	for _, fn := range h.onConnect {
		fn(p)
	}
}

func (h *Hooks) EmitPlayerDisconnect(steamID uint64) {
	for _, fn := range h.onDisconnect {
		fn(steamID)
	}
}
