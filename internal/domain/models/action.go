package models

// Action is the engine's only externally observable output: a closed
// set of tagged values, at most one per processed bar. The unexported
// method seals the set so consumers can type-switch exhaustively.
type Action interface {
	Kind() ActionKind
	action()
}

// ActionKind names an action case for metrics and serialization.
type ActionKind string

const (
	ActionEnter      ActionKind = "enter"
	ActionExit       ActionKind = "exit"
	ActionUpdateStop ActionKind = "update_stop"
	ActionFlatten    ActionKind = "flatten"
	ActionPending    ActionKind = "pending"
)

// Enter opens a position.
type Enter struct {
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	Stop      float64   `json:"stop"`
	Target    float64   `json:"target"`
	Size      int       `json:"size"`
}

// Exit closes the open position.
type Exit struct {
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	Points    float64   `json:"points"` // net of slippage and commission
	Reason    string    `json:"reason"`
}

// UpdateStop tightens the trailing stop of the open position.
type UpdateStop struct {
	Stop float64 `json:"stop"`
}

// Flatten force-exits everything, independent of position state.
type Flatten struct {
	Reason string `json:"reason"`
}

// Pending reports that a signal was accepted and the entry fills at the
// next bar's open.
type Pending struct{}

func (Enter) Kind() ActionKind      { return ActionEnter }
func (Exit) Kind() ActionKind       { return ActionExit }
func (UpdateStop) Kind() ActionKind { return ActionUpdateStop }
func (Flatten) Kind() ActionKind    { return ActionFlatten }
func (Pending) Kind() ActionKind    { return ActionPending }

func (Enter) action()      {}
func (Exit) action()       {}
func (UpdateStop) action() {}
func (Flatten) action()    {}
func (Pending) action()    {}
